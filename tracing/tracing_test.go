package tracing

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/mc"
)

type stageKernel struct {
	name      string
	kind      mc.StageKind
	iteration int
	err       error
}

func (k stageKernel) Name() string       { return k.name }
func (k stageKernel) Kind() mc.StageKind { return k.kind }
func (stageKernel) Work() int            { return 128 }
func (stageKernel) Launch() error        { return nil }
func (k stageKernel) Complete() error    { return k.err }
func (k stageKernel) Iteration() int     { return k.iteration }
func (k stageKernel) Slot() mc.Slot      { return mc.SlotOf(k.iteration) }

type plainKernel struct{}

func (plainKernel) Name() string       { return "plain" }
func (plainKernel) Kind() mc.StageKind { return mc.Aggregate }
func (plainKernel) Work() int          { return 1 }
func (plainKernel) Launch() error      { return nil }
func (plainKernel) Complete() error    { return nil }

func newDriver() api.Driver {
	return api.DriverBuilder{}.
		WithEngine(sim.NewSerialEngine()).
		WithFreq(1 * sim.GHz).
		Build("Driver")
}

// runTwoStages runs Simulate(0) followed by Calibrate(0).
func runTwoStages(driver api.Driver) error {
	e := driver.Enqueue(stageKernel{name: "Simulate(0)", kind: mc.Simulate})
	driver.Enqueue(stageKernel{name: "Calibrate(0)", kind: mc.Calibrate}, e)

	return driver.Run()
}

var _ = Describe("Logger", func() {
	var (
		buf    *bytes.Buffer
		driver api.Driver
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		driver = newDriver()
		driver.AcceptHook(NewLogger(slog.New(slog.NewTextHandler(buf, nil))))
	})

	It("should log the start and end of every kernel", func() {
		Expect(runTwoStages(driver)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(ContainSubstring(`msg="kernel start"`))
		Expect(lines[0]).To(ContainSubstring("Kernel=Simulate(0)"))
		Expect(lines[0]).To(ContainSubstring("Slot=A"))
		Expect(lines[1]).To(ContainSubstring(`msg="kernel end"`))
		Expect(lines[1]).To(ContainSubstring("ExecTimeNs="))
		Expect(lines[3]).To(ContainSubstring("Kernel=Calibrate(0)"))
	})

	It("should log failed kernels as errors", func() {
		driver.Enqueue(stageKernel{
			name: "Price(0.0)",
			kind: mc.Price,
			err:  errors.New("boom"),
		})

		Expect(driver.Run()).NotTo(Succeed())
		Expect(buf.String()).To(ContainSubstring("level=ERROR"))
		Expect(buf.String()).To(ContainSubstring("boom"))
	})
})

var _ = Describe("Timeline", func() {
	It("should record spans in completion order", func() {
		driver := newDriver()
		timeline := &Timeline{}
		driver.AcceptHook(timeline)

		Expect(runTwoStages(driver)).To(Succeed())

		spans := timeline.Spans()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Kernel).To(Equal("Simulate(0)"))
		Expect(spans[0].Kind).To(Equal(mc.Simulate))
		Expect(spans[0].Slot).To(Equal("A"))
		Expect(spans[1].Start).To(BeNumerically(">=", spans[0].End))
		Expect(spans[1].Duration()).To(BeNumerically(">", 0))

		s, ok := timeline.Find("Calibrate(0)")
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(spans[1]))

		_, ok = timeline.Find("Price(0.0)")
		Expect(ok).To(BeFalse())
	})

	It("should mark kernels outside an iteration", func() {
		driver := newDriver()
		timeline := &Timeline{}
		driver.AcceptHook(timeline)

		driver.Enqueue(plainKernel{})
		Expect(driver.Run()).To(Succeed())

		Expect(timeline.Spans()[0].Iteration).To(Equal(-1))
		Expect(timeline.Spans()[0].Slot).To(BeEmpty())
	})

	It("should render a table", func() {
		driver := newDriver()
		timeline := &Timeline{}
		driver.AcceptHook(timeline)
		Expect(runTwoStages(driver)).To(Succeed())

		var buf bytes.Buffer
		timeline.Write(&buf)

		Expect(buf.String()).To(ContainSubstring("Calibrate(0)"))
		Expect(buf.String()).To(ContainSubstring("Kernel Timeline"))
	})
})

var _ = Describe("SQLiteRecorder", func() {
	var (
		path  string
		runID uuid.UUID
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace.sqlite")
		runID = uuid.New()
	})

	It("should store the spans of a run", func() {
		recorder, err := NewSQLiteRecorder(path, runID)
		Expect(err).NotTo(HaveOccurred())
		defer recorder.Close()

		driver := newDriver()
		timeline := &Timeline{}
		driver.AcceptHook(recorder)
		driver.AcceptHook(timeline)
		Expect(runTwoStages(driver)).To(Succeed())
		Expect(recorder.Flush()).To(Succeed())

		spans, err := recorder.Spans(runID)

		Expect(err).NotTo(HaveOccurred())
		Expect(spans).To(HaveLen(2))
		for i, s := range spans {
			want := timeline.Spans()[i]
			Expect(s.Kernel).To(Equal(want.Kernel))
			Expect(s.Kind).To(Equal(want.Kind))
			Expect(s.Slot).To(Equal(want.Slot))
			Expect(float64(s.End)).To(BeNumerically("~", float64(want.End), 1e-15))
		}
	})

	It("should keep runs apart", func() {
		recorder, err := NewSQLiteRecorder(path, runID)
		Expect(err).NotTo(HaveOccurred())

		driver := newDriver()
		driver.AcceptHook(recorder)
		Expect(runTwoStages(driver)).To(Succeed())
		Expect(recorder.Close()).To(Succeed())

		other, err := NewSQLiteRecorder(path, uuid.New())
		Expect(err).NotTo(HaveOccurred())
		defer other.Close()

		spans, err := other.Spans(runID)
		Expect(err).NotTo(HaveOccurred())
		Expect(spans).To(HaveLen(2))

		spans, err = other.Spans(uuid.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(spans).To(BeEmpty())
	})
})
