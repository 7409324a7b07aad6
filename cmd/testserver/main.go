// Command testserver is a deliberately vulnerable lab target for xsspy.
package main

import (
	"fmt"
	"html"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
)

const page = `<html><body>
<h1>Search Results</h1>
<p>You searched for: %s</p>
<p>Language: %s</p>
<input type="text" name="ref" value="%s">
<a href="/?q=test&lang=en&ref=home">again</a>
</body></html>`

func main() {
	addr := ":8081"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		logrus.WithFields(logrus.Fields{"path": r.URL.Path, "query": r.URL.RawQuery}).Info("request")

		w.Header().Set("Content-Type", "text/html")
		// q and ref reflect raw; lang is encoded
		fmt.Fprintf(w, page, query.Get("q"), html.EscapeString(query.Get("lang")), query.Get("ref"))
	})

	logrus.Infof("Vulnerable server running on http://127.0.0.1%s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
