package files_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	_ "api-boilerplate/internal/apps/files"
	"api-boilerplate/internal/config"
	apphttp "api-boilerplate/internal/http"
	"api-boilerplate/internal/logging"
	"api-boilerplate/internal/router"
	"api-boilerplate/internal/storage"
)

type memoryStorage struct {
	storage.Service

	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	opts      storage.StreamOptions
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) UploadStream(_ context.Context, r io.Reader, key string, opts storage.StreamOptions) error {
	if m.uploadErr != nil {
		return &storage.StreamUploadError{Key: key, Err: m.uploadErr}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = opts.ContentType
	m.opts = opts
	return nil
}

func (m *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, &storage.DownloadError{Key: key, Err: storage.ErrObjectNotFound}
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: m.types[key],
	}, nil
}

func (m *memoryStorage) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("http://minio/bucket/%s?expires=%d", key, int(expires.Seconds())), nil
}

func multipartBody(filename, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(w.WriteField(k, v)).To(Succeed())
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())
	return &buf, w.FormDataContentType()
}

var _ = Describe("files app", func() {
	var (
		engine *gin.Engine
		store  *memoryStorage
		authed bool
	)

	BeforeEach(func() {
		store = newMemoryStorage()
		authed = true
		engine, _ = apphttp.NewEngine(config.Config{}, &router.Deps{
			Logger:  logging.Discard(),
			Storage: store,
			RequireAuth: func(c *gin.Context) {
				if !authed {
					c.AbortWithStatus(http.StatusUnauthorized)
					return
				}
				c.Next()
			},
			MaxUploadMB: 1,
			PartSizeMB:  5,
		})
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	upload := func(filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
		body, contentType := multipartBody(filename, "text/plain", content, fields)
		req := httptest.NewRequest(http.MethodPost, "/files", body)
		req.Header.Set("Content-Type", contentType)
		return serve(req)
	}

	Describe("POST /files", func() {
		It("should stream the file under a random name", func() {
			rec := upload("report.tar.gz", []byte("payload"), map[string]string{"prefix": "reports"})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Key         string `json:"key"`
				Filename    string `json:"filename"`
				Size        int64  `json:"size"`
				ContentType string `json:"content_type"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Key).To(MatchRegexp(`^reports/report-[0-9a-f-]{36}\.tar\.gz$`))
			Expect(resp.Key).To(HaveSuffix(resp.Filename))
			Expect(resp.Size).To(Equal(int64(7)))
			Expect(resp.ContentType).To(Equal("text/plain"))

			Expect(store.objects[resp.Key]).To(Equal([]byte("payload")))
			Expect(store.opts.PartSize).To(Equal(int64(5 << 20)))
		})

		It("should refuse files above the limit", func() {
			rec := upload("big.bin", bytes.Repeat([]byte("x"), 1<<20+1), nil)
			Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(store.objects).To(BeEmpty())
		})

		It("should require a file", func() {
			rec := upload("", nil, map[string]string{"prefix": "x"})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("should report a failed upload as a server error", func() {
			store.uploadErr = errors.New("part rejected")
			rec := upload("a.txt", []byte("a"), nil)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("StreamUploadError"))
		})

		It("should be guarded", func() {
			authed = false
			rec := upload("a.txt", []byte("a"), nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(store.objects).To(BeEmpty())
		})
	})

	Describe("reading files", func() {
		BeforeEach(func() {
			store.objects["docs/a.txt"] = []byte("hello")
			store.types["docs/a.txt"] = "text/plain"
			store.objects["other/b.txt"] = []byte("bye")
		})

		It("should list by prefix", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/files?prefix=docs/", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`[{"key":"docs/a.txt","size":5}]`))
		})

		It("should stream a download", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/files/download/docs/a.txt", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(Equal("hello"))
			Expect(rec.Header().Get("Content-Type")).To(Equal("text/plain"))
			Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="a.txt"`))
		})

		It("should answer 404 for missing objects", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/files/download/docs/missing.txt", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail":"File docs/missing.txt not found"}`))
		})

		It("should presign a download url", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/files/url/docs/a.txt?expires=60", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"key": "docs/a.txt",
				"url": "http://minio/bucket/docs/a.txt?expires=60",
				"expires_in": 60
			}`))
		})

		It("should validate the expiry", func() {
			rec := serve(httptest.NewRequest(http.MethodGet, "/files/url/docs/a.txt?expires=-1", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should delete an object", func() {
			rec := serve(httptest.NewRequest(http.MethodDelete, "/files/docs/a.txt", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(store.objects).NotTo(HaveKey("docs/a.txt"))
		})
	})
})
