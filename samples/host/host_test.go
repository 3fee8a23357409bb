package host

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/mcengine/config"
)

// small keeps the runs fast while still pricing the benchmark put.
var small = []string{"-cal", "512", "-steps", "10", "-samples", "8192"}

func args(extra ...string) []string {
	return append(append([]string{}, small...), extra...)
}

var _ = Describe("Run", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	It("should pass against a loose reference", func() {
		code := Run("mcamerican", config.DefaultConfig(), args("-golden", "4.4", "-gtol", "0.3"), out)

		Expect(code).To(Equal(ExitPass))
		Expect(out.String()).To(ContainSubstring("kernel start"))
		Expect(out.String()).To(ContainSubstring("kernel end"))
		Expect(out.String()).To(ContainSubstring("Collect(1)"))
		Expect(out.String()).To(ContainSubstring("PASS"))
	})

	It("should fail against a wrong reference", func() {
		code := Run("mcamerican", config.DefaultConfig(), args("-golden", "1", "-gtol", "0.01"), out)

		Expect(code).To(Equal(ExitFail))
		Expect(out.String()).To(ContainSubstring("FAIL"))
	})

	It("should skip the check without a reference", func() {
		defaults := config.DefaultConfig()
		defaults.Check.Golden = 0

		code := Run("mcamerican", defaults, args(), out)

		Expect(code).To(Equal(ExitPass))
		Expect(out.String()).NotTo(ContainSubstring("PASS"))
	})

	It("should still run with a non-numeric calibration size", func() {
		code := Run("mcamerican", config.DefaultConfig(),
			[]string{"-cal", "abc", "-steps", "5", "-samples", "4096", "-gtol", "1"}, out)

		Expect(code).To(Equal(ExitPass))
		Expect(out.String()).To(ContainSubstring(`WARNING: -cal="abc" is not valid, using 4096`))
	})

	DescribeTable("should run under the program names",
		func(name string) {
			code := Run(name, config.DefaultConfig(),
				[]string{"-cal", "abc", "-steps", "1", "-samples", "4096", "-golden", "0"}, out)

			Expect(code).To(Equal(ExitPass))
			Expect(out.String()).To(ContainSubstring("WARNING: -cal="))
			Expect(out.String()).To(ContainSubstring("Collect(1)"))
		},
		Entry("American", "mcamerican"),
		Entry("European", "mceuropean"),
	)

	It("should show the substitutions of an invalid configuration", func() {
		code := Run("mcamerican", config.DefaultConfig(),
			[]string{"-cal", "abc", "-steps", "0"}, out)

		Expect(code).To(Equal(ExitBadUsage))
		Expect(out.String()).To(ContainSubstring(`WARNING: -cal="abc" is not valid, using 4096`))
	})

	It("should log substitutions to the JSON log", func() {
		logPath := filepath.Join(GinkgoT().TempDir(), "run.json.log")

		code := Run("mcamerican", config.DefaultConfig(),
			args("-lanes", "x", "-golden", "0", "-log", logPath), out)

		Expect(code).To(Equal(ExitPass))
		Expect(out.String()).To(ContainSubstring("WARNING: -lanes="))

		log, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(log)).To(ContainSubstring(`"msg":"invalid flag value, using default"`))
		Expect(string(log)).To(ContainSubstring(`"Flag":"lanes"`))
	})

	It("should refuse an invalid configuration", func() {
		code := Run("mcamerican", config.DefaultConfig(), []string{"-steps", "0"}, out)

		Expect(code).To(Equal(ExitBadUsage))
	})

	It("should write JSON logs and the trace database", func() {
		dir := GinkgoT().TempDir()
		logPath := filepath.Join(dir, "run.json.log")
		dbPath := filepath.Join(dir, "trace.sqlite")

		code := Run("mcamerican", config.DefaultConfig(),
			args("-gtol", "1", "-log", logPath, "-trace-db", dbPath), out)

		Expect(code).To(Equal(ExitPass))
		Expect(out.String()).NotTo(ContainSubstring("kernel start"))

		log, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(log)).To(ContainSubstring(`"msg":"kernel start"`))
		Expect(dbPath).To(BeAnExistingFile())
	})
})
