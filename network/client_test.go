package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProbe(t *testing.T) {
	Convey("Given a server answering HEAD requests", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if r.URL.Path == "/downloads/medias/ok.mp4" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		Convey("An existing file probes successfully", func() {
			So(Probe(context.Background(), Client, srv.URL+"/downloads/medias/ok.mp4"), ShouldBeNil)
		})

		Convey("A missing file reports the status", func() {
			err := Probe(context.Background(), Client, srv.URL+"/downloads/medias/nope.mp4")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
		})
	})
}
