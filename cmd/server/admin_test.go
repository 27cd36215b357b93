package main

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"api-boilerplate/internal/logging"
)

var _ = Describe("reportAdmin", func() {
	var out bytes.Buffer

	BeforeEach(func() {
		out.Reset()
	})

	It("should print the credentials of a new admin as warnings", func() {
		reportAdmin(logging.NewWithOutput("info", &out), true, "root", "change-me")

		Expect(out.String()).To(ContainSubstring("level=warning"))
		Expect(out.String()).To(ContainSubstring("admin username: root"))
		Expect(out.String()).To(ContainSubstring("admin password: change-me"))
	})

	It("should name an existing admin without echoing the flag password", func() {
		reportAdmin(logging.NewWithOutput("info", &out), false, "root", "change-me")

		Expect(out.String()).To(ContainSubstring(`user \"root\" already exists`))
		Expect(out.String()).To(ContainSubstring("admin username: root"))
		Expect(out.String()).NotTo(ContainSubstring("change-me"))
	})
})
