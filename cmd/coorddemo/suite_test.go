package main

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCoordDemo(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Coordination Demo Suite")
}
