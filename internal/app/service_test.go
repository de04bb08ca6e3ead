package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	service "github.com/okian/trekhums/internal/app"
	"github.com/okian/trekhums/internal/adapters/repository"
	"github.com/okian/trekhums/internal/domain/envelope"
	"github.com/okian/trekhums/internal/domain/ident"
	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/router"
	"github.com/okian/trekhums/internal/domain/track"
	"github.com/okian/trekhums/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

const activity = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" xmlns:ns3="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
<trk><trkseg>
<trkpt lat="43.5000" lon="5.4000"><ele>200</ele><time>2020-02-25T06:00:00Z</time>
<extensions><ns3:TrackPointExtension><ns3:hr>110</ns3:hr><ns3:cad>60</ns3:cad></ns3:TrackPointExtension></extensions></trkpt>
<trkpt lat="43.5010" lon="5.4010"><ele>201</ele><time>2020-02-25T06:01:40Z</time>
<extensions><ns3:TrackPointExtension><ns3:hr>115</ns3:hr><ns3:cad>62</ns3:cad></ns3:TrackPointExtension></extensions></trkpt>
<trkpt lat="43.5020" lon="5.4020"><ele>202</ele><time>2020-02-25T06:06:40Z</time>
<extensions><ns3:TrackPointExtension><ns3:hr>120</ns3:hr><ns3:cad>64</ns3:cad></ns3:TrackPointExtension></extensions></trkpt>
<trkpt lat="43.5030" lon="5.4030"><ele>203</ele><time>2020-02-25T06:11:40Z</time>
<extensions><ns3:TrackPointExtension><ns3:hr>125</ns3:hr><ns3:cad>66</ns3:cad></ns3:TrackPointExtension></extensions></trkpt>
</trkseg></trk></gpx>`

const inbound = `<?xml version="1.0" encoding="UTF-8"?>
<n1:isfDataset xmlns:n1="http://www.asd-europe.org/s-series/s5000f" crud="I" uid="msg123">
<msgId><id>hello</id></msgId>
<msgDate><date>2020-02-25</date><time>07:01:02.0Z</time></msgDate>
<msgStatus><state>F</state></msgStatus>
<msgType><code>UC50902</code></msgType>
%CONTEXT%
<msgPty><ptyType><code>S</code></ptyType><party><persRef><persId><id>A</id></persId></persRef></party></msgPty>
<msgPty><ptyType><code>R</code></ptyType><party><persRef><persId><id>B</id></persId></persRef></party></msgPty>
<secs><sec><secClassDefRef><secClass><name>NUC</name></secClass></secClassDefRef></sec></secs>
</n1:isfDataset>`

const withContext = `<msgContext><context><projRef><projId><id>P</id></projId></projRef></context></msgContext>`

type dirs struct {
	intake, archive, output string
}

func newDirs(t *testing.T) dirs {
	root := t.TempDir()
	d := dirs{
		intake:  filepath.Join(root, "intake"),
		archive: filepath.Join(root, "archive"),
		output:  filepath.Join(root, "output"),
	}
	for _, p := range []string{d.intake, d.archive, d.output} {
		if err := os.Mkdir(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func clock() time.Time { return time.Date(2020, 4, 11, 10, 53, 9, 0, time.UTC) }

func newService(d dirs, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithStore(repository.NewDirStore(d.intake, d.archive, d.output)),
		service.WithProfile(service.Profile{
			Project:     "ASD/AIA S5000F Bicycle Example",
			Identity:    "Guillaume OLLIVIER",
			Counterpart: "Bernard RAUST",
			ProductID:   "ASD/AIA Bike",
			VariantID:   "Mountain Bike",
			SerialID:    "46",
			TrekLabel:   "chemin de la Simone",
		}),
		service.WithClock(clock),
		service.WithRunID("run-1"),
	}
	return service.New(append(base, opts...)...)
}

func readOutput(path string) envelope.Result {
	raw, err := os.ReadFile(path)
	So(err, ShouldBeNil)
	res, err := envelope.NewReader().Read(raw)
	So(err, ShouldBeNil)
	return res
}

func TestService_Report(t *testing.T) {
	Convey("Given a service and a GPX activity", t, func() {
		ctx := context.Background()
		d := newDirs(t)
		gpxPath := filepath.Join(t.TempDir(), "activity.gpx")
		So(os.WriteFile(gpxPath, []byte(activity), 0o600), ShouldBeNil)

		svc := newService(d, service.WithRedaction(track.Window{Offset: 400 * time.Second, Duration: 100 * time.Second}))

		Convey("When reporting the trek", func() {
			out, err := svc.Report(ctx, gpxPath, "")
			So(err, ShouldBeNil)

			Convey("Then the usage report is written as <uid>.xml", func() {
				id := "Bicycle trek chemin de la Simone on 2020-02-25"
				So(out.UID, ShouldEqual, ident.Derive(ident.TagMessage, id))
				So(out.Path, ShouldEqual, filepath.Join(d.output, out.UID+".xml"))
				So(out.RunID, ShouldEqual, "run-1")
				So(out.Resend, ShouldBeFalse)

				res := readOutput(out.Path)
				So(res.OK(), ShouldBeTrue)
				So(res.Envelope.Header.ID, ShouldEqual, id)
				So(res.Envelope.Header.Type, ShouldEqual, "UC50902")
				So(res.Envelope.Header.Time, ShouldEqual, "10:53:09.0Z")
				So(res.Envelope.Trailer.Parties, ShouldResemble, model.Parties{Sender: "Guillaume OLLIVIER", Receiver: "Bernard RAUST"})
				So(res.Envelope.Trailer.Remarks[0], ShouldEqual, "Feedback about bicycle trek done on 2020-02-25 reported on 2020-04-11")
			})

			Convey("Then only the row inside the window loses its position", func() {
				So(out.Masked, ShouldEqual, 1)
				u := readOutput(out.Path).Envelope.Content.(model.UsageContent)
				So(len(u.Points), ShouldEqual, 5)
				So(u.Points[0].Name, ShouldEqual, "BIKE GPS LATITUDE")
				So(len(u.Points[0].Values), ShouldEqual, 3)
				So(len(u.Points[3].Values), ShouldEqual, 4)
				So(out.Values, ShouldEqual, 3+3+3+4+4)
			})

			Convey("Then reporting again is a resend of the same uid", func() {
				again, err := svc.Report(ctx, gpxPath, "")
				So(err, ShouldBeNil)
				So(again.UID, ShouldEqual, out.UID)
				So(again.Resend, ShouldBeTrue)
			})
		})

		Convey("When the GPX file is missing", func() {
			_, err := svc.Report(ctx, filepath.Join(d.intake, "none.gpx"), "x")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestService_Answer(t *testing.T) {
	Convey("Given a service with an intake directory", t, func() {
		ctx := context.Background()
		d := newDirs(t)
		svc := newService(d)
		drop := func(name, content string) {
			So(os.WriteFile(filepath.Join(d.intake, name), []byte(content), 0o644), ShouldBeNil)
		}

		Convey("When the intake is empty", func() {
			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)
			So(out.Empty, ShouldBeTrue)
		})

		Convey("When a complete message waits", func() {
			drop("in.xml", strings.Replace(inbound, "%CONTEXT%", withContext, 1))
			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)

			Convey("Then an acknowledgment with swapped parties is written", func() {
				So(out.State, ShouldEqual, router.StateAnswered)
				So(out.Decision, ShouldEqual, router.StateParseSucceeded)
				So(out.InboundUID, ShouldEqual, "msg123")

				res := readOutput(out.Path)
				So(res.Envelope.Header.Type, ShouldEqual, "ACK")
				So(res.Envelope.Header.Status, ShouldEqual, "F")
				So(res.Envelope.Content, ShouldResemble, model.AckContent{})
				So(res.Envelope.Trailer.Parties, ShouldResemble, model.Parties{Sender: "B", Receiver: "A"})
			})

			Convey("Then the input is moved to the archive", func() {
				_, err := os.Stat(filepath.Join(d.intake, "in.xml"))
				So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
				_, err = os.Stat(filepath.Join(d.archive, "in.xml"))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the project context is missing", func() {
			drop("in.xml", strings.Replace(inbound, "%CONTEXT%", "", 1))
			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)

			Convey("Then an observation lists the missing path", func() {
				So(out.Decision, ShouldEqual, router.StateParseFailed)
				So(out.Problems, ShouldResemble, []string{envelope.PathContext})

				res := readOutput(out.Path)
				So(res.Envelope.Header.Type, ShouldEqual, "OBS")
				So(res.Envelope.Content, ShouldResemble, model.ObsContent{})
				So(res.Envelope.Trailer.Remarks[0], ShouldContainSubstring, "Path: msgContext/context/projRef/projId/id")
				So(res.Envelope.Trailer.Parties, ShouldResemble, model.Parties{Sender: "B", Receiver: "A"})
			})
		})

		Convey("When the message declares an entity", func() {
			drop("in.xml", `<?xml version="1.0"?><!DOCTYPE x [<!ENTITY e "boom">]><x>&e;</x>`)
			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)

			Convey("Then it is archived and never answered", func() {
				So(out.State, ShouldEqual, router.StateEntityRejected)
				entries, _ := os.ReadDir(d.output)
				So(len(entries), ShouldEqual, 0)
				_, err := os.Stat(filepath.Join(d.archive, "in.xml"))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the schema validator reports violations", func() {
			drop("in.xml", strings.Replace(inbound, "%CONTEXT%", withContext, 1))
			svc := newService(d, service.WithValidator(stubValidator{
				{Path: "line 3", Reason: "schema: unexpected element"},
			}))
			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)
			So(out.Decision, ShouldEqual, router.StateParseFailed)
			So(out.Problems, ShouldResemble, []string{"line 3"})
		})

		Convey("When the oldest file goes first", func() {
			drop("b.xml", strings.Replace(inbound, "%CONTEXT%", withContext, 1))
			drop("a.xml", "<broken")
			old := time.Now().Add(-time.Hour)
			So(os.Chtimes(filepath.Join(d.intake, "b.xml"), old, old), ShouldBeNil)

			out, err := svc.Answer(ctx)
			So(err, ShouldBeNil)
			So(out.Input, ShouldEqual, "b.xml")
		})
	})
}

func TestService_AnswerIOError(t *testing.T) {
	Convey("Given a store whose archive fails", t, func() {
		svc := service.New(service.WithStore(failingStore{}), service.WithProfile(service.Profile{
			Identity: "x", Counterpart: "y", Project: "p",
		}))

		Convey("Then the run fails with an i/o error", func() {
			_, err := svc.Answer(context.Background())
			So(errors.Is(err, repository.ErrIO), ShouldBeTrue)
		})
	})
}

type stubValidator []envelope.Problem

func (v stubValidator) Validate(context.Context, string) ([]envelope.Problem, error) {
	return v, nil
}

type failingStore struct{}

func (failingStore) Oldest(context.Context) (repository.File, error) {
	return repository.File{Name: "m.xml", Path: "/nonexistent/m.xml"}, nil
}

func (failingStore) Archive(context.Context, repository.File) (string, error) {
	return "", repository.ErrIO
}

func (failingStore) Read(context.Context, string) ([]byte, error) { return nil, repository.ErrIO }

func (failingStore) Write(context.Context, string, []byte) (string, bool, error) {
	return "", false, repository.ErrIO
}

func (failingStore) Exists(context.Context, string) (bool, error) { return false, nil }
