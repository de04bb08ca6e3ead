package router_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/okian/trekhums/internal/domain/envelope"
	"github.com/okian/trekhums/internal/domain/ident"
	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/router"
	. "github.com/smartystreets/goconvey/convey"
)

func fixedClock() time.Time {
	return time.Date(2020, 2, 25, 7, 1, 2, 345e6, time.UTC)
}

func readable() envelope.Result {
	return envelope.Result{Envelope: model.Envelope{
		UID:    "msg123",
		Header: model.Header{ID: "hello", Date: "2020-02-24", Time: "10:00:00.0Z", Status: "F", Type: "UC50902"},
		Trailer: model.Trailer{
			Context:        "P",
			Parties:        model.Parties{Sender: "A", Receiver: "B"},
			Classification: "NUC",
		},
	}}
}

func TestRoute(t *testing.T) {
	Convey("Given a router", t, func() {
		ctx := context.Background()
		r := router.New(
			router.WithIdentity("self"),
			router.WithCounterpart("peer"),
			router.WithProject("ASD/AIA S5000F Bicycle Example"),
			router.WithClock(fixedClock),
		)

		Convey("When the inbound message was read", func() {
			env, state, err := r.Route(ctx, readable())
			So(err, ShouldBeNil)
			So(state, ShouldEqual, router.StateParseSucceeded)

			Convey("Then an acknowledgment with swapped parties is built", func() {
				So(env.Content.Kind(), ShouldEqual, model.KindAcknowledgment)
				So(env.Header.Type, ShouldEqual, "ACK")
				So(env.Header.Status, ShouldEqual, "F")
				So(env.Trailer.Parties, ShouldResemble, model.Parties{Sender: "B", Receiver: "A"})
				So(env.Trailer.Context, ShouldEqual, "P")
				So(env.Trailer.Remarks, ShouldResemble, []string{"Acknowledgment of message msg123"})
			})

			Convey("Then the answer is dated by the clock and identified by the inbound uid", func() {
				So(env.Header.Date, ShouldEqual, "2020-02-25")
				So(env.Header.Time, ShouldEqual, "07:01:02.3Z")
				So(env.Header.ID, ShouldEqual, "Acknowledgment of msg123")
				So(env.UID, ShouldEqual, ident.Derive(ident.TagMessage, env.Header.ID))
			})
		})

		Convey("When the project context is missing", func() {
			res := readable()
			res.Envelope.Trailer.Context = ""
			res.Failure = &envelope.ParseFailure{}
			res.Failure.Add(envelope.PathContext, "mandatory element is missing")

			env, state, err := r.Route(ctx, res)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, router.StateParseFailed)

			Convey("Then an observation names the missing path", func() {
				So(env.Content.Kind(), ShouldEqual, model.KindObservation)
				So(env.Header.Type, ShouldEqual, "OBS")
				So(len(env.Trailer.Remarks), ShouldEqual, 1)
				So(env.Trailer.Remarks[0], ShouldContainSubstring, "msgContext/context/projRef/projId/id")
			})

			Convey("Then parties are swapped and defaults fill the trailer", func() {
				So(env.Trailer.Parties, ShouldResemble, model.Parties{Sender: "B", Receiver: "A"})
				So(env.Trailer.Classification, ShouldEqual, "NUC")
				So(env.Trailer.Context, ShouldEqual, "ASD/AIA S5000F Bicycle Example")
				So(env.Header.ID, ShouldEqual, "Observation of msg123")
			})
		})

		Convey("When nothing could be read", func() {
			res := envelope.Result{Failure: &envelope.ParseFailure{}}
			res.Failure.Add("/", "document is not well-formed")
			env, _, err := r.Route(ctx, res)
			So(err, ShouldBeNil)

			Convey("Then configured identities are used", func() {
				So(env.Trailer.Parties, ShouldResemble, model.Parties{Sender: "self", Receiver: "peer"})
				So(env.Header.ID, ShouldEqual, "Observation of unidentified message")
			})
		})
	})
}

func TestObservationRemark(t *testing.T) {
	Convey("Given a failure with two problems", t, func() {
		f := &envelope.ParseFailure{}
		f.Add("msgType/code", "mandatory element is missing")
		f.Add("@uid", "mandatory attribute is missing")

		Convey("Then each problem gets its own line below the heading", func() {
			lines := strings.Split(router.ObservationRemark(f), router.RemarkSeparator)
			So(lines, ShouldResemble, []string{
				router.ObservationHeading,
				"Reason: mandatory element is missing Path: msgType/code",
				"Reason: mandatory attribute is missing Path: @uid",
			})
		})
	})
}

func TestState(t *testing.T) {
	Convey("Only rejected and answered messages are terminal", t, func() {
		So(router.StateEntityRejected.Terminal(), ShouldBeTrue)
		So(router.StateAnswered.Terminal(), ShouldBeTrue)
		So(router.StateParseFailed.Terminal(), ShouldBeFalse)
		So(router.StateAnswered.String(), ShouldEqual, "answered")
	})
}
