package main

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/panyam/gocoord/internal/config"
)

var _ = Describe("coorddemo", func() {
	var (
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		cfg    *config.Config
	)

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		cfg = config.Default().WithMessageDelay(time.Millisecond)
	})

	runDemo := func() int {
		return run(cfg, stdout, newLogger(stderr, true))
	}

	Context("with the default walkthrough", func() {
		It("runs every stage and exits zero", func() {
			Expect(runDemo()).To(Equal(exitOK))

			out := stdout.String()
			Expect(out).To(ContainSubstring("Basic threads completed!"))
			Expect(out).To(ContainSubstring("Final counter value: 10"))
			Expect(out).To(ContainSubstring("Sum calculated in thread: 15"))
			Expect(out).To(ContainSubstring("Total: processed 20 numbers, final sum: 2870"))
			Expect(strings.Count(out, "Thread processed 5 numbers")).To(Equal(4))
			Expect(strings.Count(out, "Received: ")).To(Equal(2 * 4))
			Expect(stderr.String()).NotTo(ContainSubstring("level=ERROR"))
		})

		It("reduces an uneven split with the remainder in the last chunk", func() {
			cfg = cfg.WithItems(22)
			Expect(runDemo()).To(Equal(exitOK))
			Expect(stdout.String()).To(ContainSubstring("Thread processed 7 numbers"))
			Expect(stdout.String()).To(ContainSubstring("Total: processed 22 numbers, final sum: 3795"))
		})

		It("counts race-free with many incrementers", func() {
			cfg.Increments = 1000
			Expect(runDemo()).To(Equal(exitOK))
			Expect(stdout.String()).To(ContainSubstring("Final counter value: 1000"))
		})
	})

	DescribeTable("an injected worker panic",
		func(stage, completion string) {
			cfg = cfg.WithFailStage(stage)
			Expect(runDemo()).To(Equal(exitFailed))

			Expect(stderr.String()).To(ContainSubstring("stage=" + stage))
			Expect(stderr.String()).To(ContainSubstring("injected failure"))
			Expect(stdout.String()).NotTo(ContainSubstring(completion))
			// later stages still run
			if stage != "parallel-computation" {
				Expect(stdout.String()).To(ContainSubstring("Parallel computation completed!"))
			}
		},
		Entry("in the counting thread", "basic-threads", "Basic threads completed!"),
		Entry("in a producer", "message-passing", "Message passing completed!"),
		Entry("while holding the counter lock", "shared-state", "Shared state completed!"),
		Entry("in the summing thread", "move-closures", "Move closures completed!"),
		Entry("in a chunk worker", "parallel-computation", "Parallel computation completed!"),
	)

	It("rejects zero workers before any chunk runs", func() {
		cfg = cfg.WithWorkers(0)
		Expect(runDemo()).To(Equal(exitFailed))
		Expect(stderr.String()).To(ContainSubstring("invalid worker count 0"))
		Expect(stdout.String()).NotTo(ContainSubstring("Thread processed"))
	})

	It("refuses an invalid configuration without running", func() {
		cfg.Producers = 0
		Expect(runDemo()).To(Equal(exitUsage))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("logs dropped output instead of failing the walkthrough", func() {
		Expect(run(cfg, failingWriter{}, newLogger(stderr, true))).To(Equal(exitOK))
		Expect(stderr.String()).To(ContainSubstring("output dropped"))
		Expect(stderr.String()).To(ContainSubstring("broken pipe"))
	})

	Describe("flag parsing", func() {
		It("layers flags over the base config", func() {
			got, err := parseFlags([]string{"-w", "8", "--items=40", "--fail-stage", "shared-state", "-v"},
				config.Default(), stderr)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Workers).To(Equal(8))
			Expect(got.Items).To(Equal(40))
			Expect(got.FailStage).To(Equal("shared-state"))
			Expect(got.Verbose).To(BeTrue())
			Expect(got.Producers).To(Equal(config.DefaultProducers))
		})

		It("rejects unknown stages and stray arguments", func() {
			_, err := parseFlags([]string{"--fail-stage", "nope"}, config.Default(), stderr)
			Expect(err).To(MatchError(ContainSubstring(`unknown stage "nope"`)))

			_, err = parseFlags([]string{"extra"}, config.Default(), stderr)
			Expect(err).To(HaveOccurred())
		})

		It("maps usage errors to exit status 2", func() {
			Expect(realMain([]string{"--no-such-flag"}, stdout, stderr)).To(Equal(exitUsage))
			Expect(realMain([]string{"--help"}, stdout, stderr)).To(Equal(exitOK))
		})
	})
})

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}
