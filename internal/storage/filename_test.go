package storage_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"api-boilerplate/internal/storage"
)

var _ = Describe("RandomFilename", func() {
	const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

	It("should keep every extension segment", func() {
		Expect(storage.RandomFilename("report.tar.gz")).To(MatchRegexp(`^report-` + uuidPattern + `\.tar\.gz$`))
	})

	It("should append the id to names without an extension", func() {
		Expect(storage.RandomFilename("Makefile")).To(MatchRegexp(`^Makefile-` + uuidPattern + `$`))
	})

	It("should produce a different name each time", func() {
		Expect(storage.RandomFilename("a.txt")).NotTo(Equal(storage.RandomFilename("a.txt")))
	})

	It("should handle dotfiles", func() {
		name := storage.RandomFilename(".env")
		Expect(strings.HasPrefix(name, "-")).To(BeTrue())
		Expect(name).To(HaveSuffix(".env"))
	})
})

var _ = DescribeTable("JoinKey",
	func(prefix, name, expected string) {
		Expect(storage.JoinKey(prefix, name)).To(Equal(expected))
	},
	Entry("no prefix", "", "a.txt", "a.txt"),
	Entry("plain prefix", "docs", "a.txt", "docs/a.txt"),
	Entry("slashes trimmed", "/docs/", "/a.txt", "docs/a.txt"),
	Entry("nested prefix", "a/b", "c.txt", "a/b/c.txt"),
)
