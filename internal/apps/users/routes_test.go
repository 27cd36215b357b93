package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	_ "api-boilerplate/internal/apps/users"
	"api-boilerplate/internal/config"
	"api-boilerplate/internal/database"
	apphttp "api-boilerplate/internal/http"
	"api-boilerplate/internal/http/middleware"
	"api-boilerplate/internal/logging"
	"api-boilerplate/internal/repository/orm"
	"api-boilerplate/internal/router"
	"api-boilerplate/internal/security"
	"api-boilerplate/internal/service"
)

var _ = Describe("users app", func() {
	var (
		engine *gin.Engine
		users  service.UserService
		secret string
	)

	BeforeEach(func() {
		secret = ""
	})

	JustBeforeEach(func() {
		ctx := context.Background()
		db, err := database.Open("sqlite::memory:", logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(database.Close, db)
		Expect(database.Migrate(ctx, db, database.Models()...)).To(Succeed())

		tokens, err := security.NewTokenManager("HS256", "secret-key", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		users = service.NewUserService(orm.NewUserRepository(db), tokens, "secret-key", secret)

		created, err := users.EnsureAdmin(ctx, "admin", "admin-password")
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		engine, _ = apphttp.NewEngine(config.Config{}, &router.Deps{
			Logger:      logging.Discard(),
			Users:       users,
			RequireAuth: middleware.RequireAuth(users),
		})
	})

	do := func(method, target, contentType, body string, header ...string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for i := 0; i+1 < len(header); i += 2 {
			req.Header.Set(header[i], header[i+1])
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	login := func(username, password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"username": username, "password": password})
		return do(http.MethodPost, "/token", "application/json", string(body))
	}

	Describe("POST /token", func() {
		It("should issue a bearer token", func() {
			rec := login("admin", "admin-password")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var token service.Token
			Expect(json.Unmarshal(rec.Body.Bytes(), &token)).To(Succeed())
			Expect(token.TokenType).To(Equal("bearer"))
			Expect(token.AccessToken).NotTo(BeEmpty())
		})

		It("should accept form encoded credentials", func() {
			form := url.Values{"username": {"admin"}, "password": {"admin-password"}}
			rec := do(http.MethodPost, "/token", "application/x-www-form-urlencoded", form.Encode())
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should reject bad credentials with a bearer challenge", func() {
			rec := login("admin", "nope")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(Equal("Bearer"))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail":"Incorrect username or password"}`))
		})

		It("should reject unknown users the same way", func() {
			rec := login("ghost", "admin-password")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail":"Incorrect username or password"}`))
		})

		It("should validate the payload", func() {
			rec := do(http.MethodPost, "/token", "application/json", `{"username":"admin"}`)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(rec.Body.String()).To(ContainSubstring("password"))
		})
	})

	Describe("GET /users/me", func() {
		It("should return the token owner", func() {
			var token service.Token
			Expect(json.Unmarshal(login("admin", "admin-password").Body.Bytes(), &token)).To(Succeed())

			rec := do(http.MethodGet, "/users/me", "", "", "Authorization", "Bearer "+token.AccessToken)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var me map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &me)).To(Succeed())
			Expect(me).To(HaveKeyWithValue("username", "admin"))
			Expect(me).NotTo(HaveKey("password"))
		})

		It("should require a token", func() {
			rec := do(http.MethodGet, "/users/me", "", "")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"detail": "Authentication required",
				"error": "UNAUTHORIZED",
				"message": "Valid authentication credentials are required to access this resource"
			}`))
		})

		It("should reject a forged token", func() {
			other, err := security.NewTokenManager("HS256", "another-key", time.Hour)
			Expect(err).NotTo(HaveOccurred())
			forged, err := other.Encode(map[string]any{"sub": "admin"})
			Expect(err).NotTo(HaveOccurred())

			rec := do(http.MethodGet, "/users/me", "", "", "Authorization", "Bearer "+forged)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /users", func() {
		register := func(body string) *httptest.ResponseRecorder {
			return do(http.MethodPost, "/users", "application/json", body)
		}

		It("should create a user that can log in", func() {
			rec := register(`{"username":"alice","password":"wonderland"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring(`"username":"alice"`))

			Expect(login("alice", "wonderland").Code).To(Equal(http.StatusOK))
		})

		It("should refuse a taken username", func() {
			rec := register(`{"username":"admin","password":"something-long"}`)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("should refuse a short password", func() {
			rec := register(`{"username":"bob","password":"short"}`)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		When("registration is invite only", func() {
			BeforeEach(func() {
				secret = "invite"
			})

			It("should require the registration password", func() {
				rec := register(`{"username":"carol","password":"long-enough","register_password":"guess"}`)
				Expect(rec.Code).To(Equal(http.StatusForbidden))

				rec = register(`{"username":"carol","password":"long-enough","register_password":"invite"}`)
				Expect(rec.Code).To(Equal(http.StatusCreated))
			})
		})
	})
})
