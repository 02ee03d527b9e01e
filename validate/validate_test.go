package validate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type body struct {
	Name   string `json:"name" validate:"required"`
	Volume int    `json:"volume" validate:"min=0,max=100"`
	Inner  inner  `json:"inner"`
}

type inner struct {
	Enabled bool `json:"enabled"`
	Points  int  `json:"points" validate:"required_if=Enabled true"`
}

func TestValidator(t *testing.T) {
	Convey("Given a validator", t, func() {
		v := New()

		Convey("A valid body passes", func() {
			fields, ok := v.Struct(body{Name: "a", Volume: 50})
			So(ok, ShouldBeTrue)
			So(fields, ShouldBeEmpty)
		})

		Convey("Fields are reported with their json names", func() {
			fields, ok := v.Struct(body{Volume: 150, Inner: inner{Enabled: true}})
			So(ok, ShouldBeFalse)
			So(fields, ShouldHaveLength, 3)

			names := []string{fields[0].Field, fields[1].Field, fields[2].Field}
			So(names, ShouldContain, "body.name")
			So(names, ShouldContain, "body.volume")
			So(names, ShouldContain, "body.inner.points")
		})
	})
}
