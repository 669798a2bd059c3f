package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dylanram/attribution/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty ledger", t, func() {
		l := repository.NewLedger(repository.WithMetrics(false))

		Convey("Then reads are empty", func() {
			So(l.Count(ctx), ShouldEqual, 0)
			top, err := l.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldBeEmpty)
			_, err = l.Rank(ctx, "Acme Consulting")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When two deals are credited", func() {
			So(l.Credit(ctx, "deal-1", 150000, map[string]float64{
				"Acme Consulting": 60000, "DataTech SI": 15000, "Cloud Partners": 30000, "Integration Pro": 45000,
			}), ShouldBeNil)
			So(l.Credit(ctx, "deal-2", 50000, map[string]float64{
				"DataTech SI": 50000, "Cloud Partners": 0,
			}), ShouldBeNil)

			Convey("Then standings are ordered by attributed amount", func() {
				top, err := l.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[0].Partner, ShouldEqual, "DataTech SI")
				So(top[0].Attributed, ShouldEqual, 65000)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Partner, ShouldEqual, "Acme Consulting")
				So(top[2].Partner, ShouldEqual, "Integration Pro")
				So(top[3].Partner, ShouldEqual, "Cloud Partners")
				So(top[3].Rank, ShouldEqual, 4)
			})

			Convey("And zero-amount partners still count the deal", func() {
				s, err := l.Rank(ctx, "Cloud Partners")
				So(err, ShouldBeNil)
				So(s.Deals, ShouldEqual, 2)
				So(s.Attributed, ShouldEqual, 30000)
				So(s.AvgDealSize, ShouldEqual, 100000)
			})

			Convey("And totals conserve revenue", func() {
				tot := l.Totals(ctx)
				So(tot.Deals, ShouldEqual, 2)
				So(tot.Partners, ShouldEqual, 4)
				So(tot.Revenue, ShouldEqual, 200000)

				top, _ := l.TopN(ctx, 100)
				sum := 0.0
				for _, s := range top {
					sum += s.Attributed
				}
				So(sum, ShouldAlmostEqual, tot.Revenue, 0.01)
			})

			Convey("And TopN truncates", func() {
				top, err := l.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
			})

			Convey("And crediting the same deal again fails", func() {
				err := l.Credit(ctx, "deal-1", 150000, map[string]float64{"Acme Consulting": 150000})
				So(errors.Is(err, repository.ErrDuplicateDeal), ShouldBeTrue)
				So(l.Totals(ctx).Revenue, ShouldEqual, 200000)
			})
		})

		Convey("When ties occur", func() {
			So(l.Credit(ctx, "d", 100, map[string]float64{"b": 50, "a": 50}), ShouldBeNil)

			Convey("Then partner name breaks them", func() {
				top, _ := l.TopN(ctx, 2)
				So(top[0].Partner, ShouldEqual, "a")
				So(top[1].Partner, ShouldEqual, "b")
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := l.TopN(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When a credit is malformed", func() {
			So(errors.Is(l.Credit(ctx, "x", 0, nil), repository.ErrInvalidCredit), ShouldBeTrue)
			So(errors.Is(l.Credit(ctx, "y", 10, map[string]float64{"a": -1}), repository.ErrInvalidCredit), ShouldBeTrue)
			So(errors.Is(l.Credit(ctx, "z", 10, map[string]float64{" ": 10}), repository.ErrInvalidCredit), ShouldBeTrue)
			So(l.Totals(ctx).Deals, ShouldEqual, 0)
		})
	})

	Convey("Given concurrent credits and reads", t, func() {
		l := repository.NewLedger()
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = l.Credit(ctx, fmt.Sprintf("deal-%d-%d", g, i), 100, map[string]float64{"p": 60, fmt.Sprintf("q%d", g): 40})
					_, _ = l.TopN(ctx, 5)
				}
			}(g)
		}
		wg.Wait()

		Convey("Then every credit lands", func() {
			s, err := l.Rank(ctx, "p")
			So(err, ShouldBeNil)
			So(s.Rank, ShouldEqual, 1)
			So(s.Deals, ShouldEqual, 400)
			So(s.Attributed, ShouldEqual, 24000)
			So(l.Count(ctx), ShouldEqual, 9)
			So(l.Totals(ctx).Revenue, ShouldEqual, 40000)
		})
	})
}
