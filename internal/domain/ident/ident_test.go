package ident_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/okian/trekhums/internal/domain/ident"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	Convey("Given the xxhash deriver", t, func() {
		d := ident.XXHash{}

		Convey("When deriving the same seed twice", func() {
			a := d.Derive(ident.TagMessage, "Bicycle trek on 2020-02-25")
			b := d.Derive(ident.TagMessage, "Bicycle trek on 2020-02-25")

			Convey("Then both identifiers are equal and tagged", func() {
				So(a, ShouldEqual, b)
				So(a, ShouldStartWith, "msg")
			})
		})

		Convey("When deriving many seeds", func() {
			seeds := []string{"", "a", "BIKE GPS LONGITUDE", "ASD/AIA Bike:Mountain Bike:46", strings.Repeat("x", 4096)}

			Convey("Then every numeric part is non-negative and unsigned in rendering", func() {
				for _, s := range seeds {
					id := d.Derive(ident.TagMeasurementPoint, s)
					num := strings.TrimPrefix(id, ident.TagMeasurementPoint)
					So(num, ShouldNotStartWith, "-")
					n, err := strconv.ParseInt(num, 10, 64)
					So(err, ShouldBeNil)
					So(n, ShouldBeGreaterThanOrEqualTo, 0)
				}
			})
		})

		Convey("When deriving different seeds", func() {
			Convey("Then identifiers differ", func() {
				So(d.Derive("mpoint", "BIKE GPS LATITUDE"), ShouldNotEqual, d.Derive("mpoint", "BIKE GPS LONGITUDE"))
			})
		})

		Convey("When using the package default", func() {
			Convey("Then it agrees with the explicit deriver", func() {
				So(ident.Derive("msg", "seed"), ShouldEqual, d.Derive("msg", "seed"))
				So(ident.Default().Derive("msg", "seed"), ShouldEqual, d.Derive("msg", "seed"))
			})

			Convey("Then every call returns a fresh xxhash deriver", func() {
				So(ident.Default(), ShouldHaveSameTypeAs, ident.XXHash{})
				So(ident.Default(), ShouldResemble, ident.Default())
			})
		})

		Convey("When hashing the empty string", func() {
			Convey("Then the value is the masked xxh64 of empty input", func() {
				// xxh64("") = 0xef46db3751d8e999
				So(ident.Sum(""), ShouldEqual, uint64(0xef46db3751d8e999)&(1<<63-1))
			})
		})
	})
}
