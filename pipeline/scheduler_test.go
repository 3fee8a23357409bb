package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/mc"
	"github.com/sarchlab/mcengine/verify"
)

// Longstaff and Schwartz (2001), Table 1, S=36 sigma=0.2 T=1. A 3.97 target
// is out of reach for an unbiased estimator of this put.
const americanPutReference = 4.472

// Golden value of the European engine for the same put.
const europeanPutReference = 3.834522

func newDriver() api.Driver {
	return api.DriverBuilder{}.
		WithEngine(sim.NewSerialEngine()).
		WithFreq(1 * sim.GHz).
		Build("Driver")
}

var _ = Describe("Scheduler", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = Config{
			Market:          smallPut,
			CalibSamples:    512,
			TimeSteps:       10,
			RequiredSamples: 2048,
			Iterations:      3,
			Seed:            42,
		}
	})

	It("should overlap iterations on different slots", func() {
		s := NewScheduler(newDriver(), cfg)

		result, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		h := s.handles
		Expect(h[1].Simulate.LaunchTime()).
			To(BeNumerically("<", h[0].Collect.FireTime()))
		Expect(result.Iterations[1].Start).
			To(BeNumerically("<", result.Iterations[0].End))
	})

	It("should not reuse a slot before it is collected", func() {
		s := NewScheduler(newDriver(), cfg)

		_, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		h := s.handles
		Expect(h[2].Slot).To(Equal(h[0].Slot))
		Expect(h[2].Simulate.LaunchTime()).
			To(BeNumerically(">=", h[0].Collect.FireTime()))
	})

	It("should run the stages of an iteration in order", func() {
		s := NewScheduler(newDriver(), cfg)

		_, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		for _, h := range s.handles {
			Expect(h.Calibrate.LaunchTime()).
				To(BeNumerically(">=", h.Simulate.FireTime()))
			for _, p := range h.Price {
				Expect(p.LaunchTime()).
					To(BeNumerically(">=", h.Calibrate.FireTime()))
				Expect(h.Collect.LaunchTime()).
					To(BeNumerically(">=", p.FireTime()))
			}
		}
	})

	It("should collect every sub-stage estimate", func() {
		s := NewScheduler(newDriver(), cfg)

		result, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(result.RunID).To(Equal(s.RunID()))
		Expect(result.Iterations).To(HaveLen(3))
		Expect(result.Estimates).To(HaveLen(3 * DefaultSubStages))
		for _, e := range result.Estimates {
			Expect(e.Samples).To(Equal(1024))
		}
		Expect(result.Price).To(Equal(verify.Mean(result.Estimates...)))
		for _, it := range result.Iterations {
			Expect(result.Elapsed).To(BeNumerically(">=", it.End))
		}
	})

	It("should leave both slots idle", func() {
		s := NewScheduler(newDriver(), cfg)

		_, err := s.Run()
		Expect(err).NotTo(HaveOccurred())

		for _, slot := range s.slots {
			Expect(slot.state).To(Equal(stateIdle))
			Expect(slot.owner).To(Equal(-1))
		}
	})

	It("should be reproducible", func() {
		a, err := NewScheduler(newDriver(), cfg).Run()
		Expect(err).NotTo(HaveOccurred())

		b, err := NewScheduler(newDriver(), cfg).Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Estimates).To(Equal(b.Estimates))
		Expect(a.RunID).NotTo(Equal(b.RunID))
	})

	It("should price until the tolerance is reached", func() {
		cfg.RequiredSamples = 0
		cfg.RequiredTolerance = 0.05
		cfg.Iterations = 1

		result, err := NewScheduler(newDriver(), cfg).Run()

		Expect(err).NotTo(HaveOccurred())
		for _, e := range result.Estimates {
			Expect(e.StdErr).To(BeNumerically("<=", 0.05))
		}
	})

	It("should abort on an invalid parameter", func() {
		cfg.TimeSteps = 0

		result, err := NewScheduler(newDriver(), cfg).Run()

		Expect(err).To(MatchError(mc.ErrInvalidParameter))
		Expect(result).To(BeNil())
	})

	It("should abort when a slot is reused too early", func() {
		cfg.Iterations = 1
		s := NewScheduler(newDriver(), cfg)
		s.issue()

		rogue := &simulateKernel{stage: stage{
			cfg:       &s.cfg,
			slot:      s.slots[mc.SlotA],
			handle:    &IterationHandle{Index: 2},
			iteration: 2,
		}}
		s.driver.Enqueue(rogue)

		err := s.driver.Run()

		Expect(err).To(MatchError(mc.ErrDependencyViolation))
	})

	Context("with the benchmark put", func() {
		BeforeEach(func() {
			cfg = Config{
				Market:            smallPut,
				CalibSamples:      4096,
				TimeSteps:         100,
				RequiredSamples:   24576,
				RequiredTolerance: 0.02,
				Iterations:        2,
				Seed:              42,
			}
		})

		It("should price the American put", func() {
			result, err := NewScheduler(newDriver(), cfg).Run()
			Expect(err).NotTo(HaveOccurred())

			check := verify.CheckPrice(result.Price, americanPutReference, 0.2)
			Expect(check.Err()).NotTo(HaveOccurred())
			Expect(result.Price).To(BeNumerically(">", verify.BlackScholes(smallPut)))
		})

		It("should price the European put with a single time step", func() {
			cfg.TimeSteps = 1

			result, err := NewScheduler(newDriver(), cfg).Run()
			Expect(err).NotTo(HaveOccurred())

			check := verify.CheckPrice(result.Price, europeanPutReference, 0.02)
			Expect(check.Err()).NotTo(HaveOccurred())
		})
	})
})
