package types_test

import (
	"testing"

	types "github.com/dylanram/attribution/internal/domain/types"
	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandingJSON(t *testing.T) {
	Convey("Given a standing", t, func() {
		s := types.Standing{Rank: 1, Partner: "Acme Consulting", Attributed: 60000, Deals: 2, AvgDealSize: 150000}

		Convey("When encoded", func() {
			b, err := json.Marshal(s)
			So(err, ShouldBeNil)

			Convey("Then it uses snake_case keys", func() {
				So(string(b), ShouldEqual, `{"rank":1,"partner":"Acme Consulting","attributed":60000,"deals":2,"avg_deal_size":150000}`)
			})
		})
	})

	Convey("Given ledger totals", t, func() {
		b, err := json.Marshal(types.Totals{Partners: 4, Deals: 1, Revenue: 150000})
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `{"partners":4,"deals":1,"revenue":150000}`)
	})
}
