package monitor_test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/heartbeat-monitor/internal/monitor"
)

var _ = Describe("Store", func() {
	var store *monitor.Store

	BeforeEach(func() {
		store = monitor.NewStore()
	})

	Describe("Put and Get", func() {
		It("should return a copy of the stored record", func() {
			store.Put(monitor.Monitor{ID: "dev1", Status: monitor.StatusActive})

			m, ok := store.Get("dev1")
			Expect(ok).To(BeTrue())
			Expect(m.ID).To(Equal("dev1"))

			m.Status = monitor.StatusDown
			again, _ := store.Get("dev1")
			Expect(again.Status).To(Equal(monitor.StatusActive))
		})

		It("should report absent ids", func() {
			_, ok := store.Get("missing")
			Expect(ok).To(BeFalse())
			Expect(store.Has("missing")).To(BeFalse())
		})

		It("should overwrite on the same id", func() {
			store.Put(monitor.Monitor{ID: "dev1", AlertTarget: "a@example.com"})
			store.Put(monitor.Monitor{ID: "dev1", AlertTarget: "b@example.com"})

			Expect(store.List()).To(HaveLen(1))
			m, _ := store.Get("dev1")
			Expect(m.AlertTarget).To(Equal("b@example.com"))
		})
	})

	Describe("List", func() {
		It("should keep first-registration order", func() {
			for _, id := range []string{"c", "a", "b", "a"} {
				store.Put(monitor.Monitor{ID: id})
			}

			var ids []string
			for _, m := range store.List() {
				ids = append(ids, m.ID)
			}
			Expect(ids).To(Equal([]string{"c", "a", "b"}))
		})
	})

	Describe("Update", func() {
		It("should fail with ErrNotFound for unknown ids", func() {
			err := store.Update("missing", func(*monitor.Monitor) error { return nil })
			Expect(err).To(MatchError(monitor.ErrNotFound))
		})

		It("should discard changes when fn fails", func() {
			store.Put(monitor.Monitor{ID: "dev1", Status: monitor.StatusActive})

			boom := errors.New("boom")
			err := store.Update("dev1", func(m *monitor.Monitor) error {
				m.Status = monitor.StatusDown
				return boom
			})
			Expect(err).To(MatchError(boom))

			m, _ := store.Get("dev1")
			Expect(m.Status).To(Equal(monitor.StatusActive))
		})

		It("should serialize concurrent updates of one id", func() {
			store.Put(monitor.Monitor{ID: "dev1"})

			var wg sync.WaitGroup
			wg.Add(100)
			for i := 0; i < 100; i++ {
				go func() {
					defer wg.Done()
					_ = store.Update("dev1", func(m *monitor.Monitor) error {
						m.Timeout += time.Millisecond
						return nil
					})
				}()
			}
			wg.Wait()

			m, _ := store.Get("dev1")
			Expect(m.Timeout).To(Equal(100 * time.Millisecond))
		})
	})

	Describe("Upsert", func() {
		It("should report whether the record existed", func() {
			var seen []bool
			for i := 0; i < 2; i++ {
				Expect(store.Upsert("dev1", func(m *monitor.Monitor, exists bool) error {
					seen = append(seen, exists)
					m.ID = "dev1"
					return nil
				})).To(Succeed())
			}
			Expect(seen).To(Equal([]bool{false, true}))
		})

		It("should leave the id absent when the first upsert fails", func() {
			err := store.Upsert("dev1", func(*monitor.Monitor, bool) error {
				return errors.New("rejected")
			})
			Expect(err).To(HaveOccurred())
			Expect(store.Has("dev1")).To(BeFalse())
			Expect(store.List()).To(BeEmpty())
		})

		It("should create one record per id under concurrent upserts", func() {
			var wg sync.WaitGroup
			wg.Add(50)
			for i := 0; i < 50; i++ {
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("dev%d", i%5)
					_ = store.Upsert(id, func(m *monitor.Monitor, _ bool) error {
						m.ID = id
						return nil
					})
				}(i)
			}
			wg.Wait()

			Expect(store.List()).To(HaveLen(5))
		})
	})
})
