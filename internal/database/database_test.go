package database_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"api-boilerplate/internal/database"
	"api-boilerplate/internal/domain"
	"api-boilerplate/internal/logging"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

var _ = Describe("Open", func() {
	ctx := context.Background()

	It("should open an in-memory sqlite database and migrate models", func() {
		db, err := database.Open("sqlite::memory:", logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(database.Close, db)

		Expect(database.Ping(ctx, db)).To(Succeed())
		Expect(database.Migrate(ctx, db, &domain.User{}, &note{})).To(Succeed())
		Expect(db.Migrator().HasTable("user")).To(BeTrue())
		Expect(db.Migrator().HasTable(&note{})).To(BeTrue())
	})

	It("should create the directory of a sqlite file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "app.db")
		db, err := database.Open("sqlite://"+path, logging.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(database.Close, db)

		Expect(database.Migrate(ctx, db, &note{})).To(Succeed())
		Expect(path).To(BeAnExistingFile())
	})

	It("should reject unknown drivers", func() {
		_, err := database.Open("mysql://u:p@h/db", logging.Discard())
		Expect(err).To(MatchError(database.ErrUnsupportedDriver))
	})

	It("should skip migration without models", func() {
		Expect(database.Migrate(ctx, nil)).To(Succeed())
	})
})

var _ = Describe("Ping", func() {
	var (
		mock   sqlmock.Sqlmock
		mockDB *sql.DB
		gormDB *gorm.DB
	)

	BeforeEach(func() {
		var err error
		mockDB, mock, err = sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())

		gormDB, err = gorm.Open(postgres.New(postgres.Config{
			Conn:       mockDB,
			DriverName: "postgres",
		}), &gorm.Config{DisableAutomaticPing: true})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mock.ExpectClose()
		Expect(mockDB.Close()).To(Succeed())
	})

	It("should succeed when the server answers", func() {
		mock.ExpectPing()
		Expect(database.Ping(context.Background(), gormDB)).To(Succeed())
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("should wrap a failed ping", func() {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		err := database.Ping(context.Background(), gormDB)
		Expect(err).To(MatchError(ContainSubstring("ping database: connection refused")))
	})

	It("should back the health checker", func() {
		mock.ExpectPing()
		checker := database.Checker(gormDB)
		Expect(checker.Name()).To(Equal("database"))
		Expect(checker.Check(context.Background())).To(Succeed())
	})
})

var _ = Describe("Connect", func() {
	ctx := context.Background()

	It("should connect to a reachable database", func() {
		db, err := database.Connect(ctx, "sqlite::memory:", logging.Discard(), 1, time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(database.Close, db)
		Expect(database.Ping(ctx, db)).To(Succeed())
	})

	It("should fail fast on an invalid url", func() {
		_, err := database.Connect(ctx, "postgres://app@db/app", logging.Discard(), 3, time.Millisecond)
		Expect(err).To(MatchError(ContainSubstring("password cannot be empty")))
	})

	It("should give up after the configured attempts", func() {
		_, err := database.Connect(ctx, "mysql://u:p@h:3306/db", logging.Discard(), 2, time.Millisecond)
		Expect(err).To(MatchError(database.ErrUnsupportedDriver))
		Expect(err).To(MatchError(ContainSubstring("after 2 attempts")))
	})
})

var _ = Describe("RegisterModel", func() {
	It("should keep one entry per model type", func() {
		before := len(database.Models())
		database.RegisterModel(&note{}, &note{}, nil)
		database.RegisterModel(&note{})
		Expect(database.Models()).To(HaveLen(before + 1))
		Expect(database.Models()).To(ContainElement(BeAssignableToTypeOf(&note{})))
	})
})
