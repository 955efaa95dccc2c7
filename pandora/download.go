/*
Copyright © 2024 the colloc authors.
This file is part of colloc.

colloc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

colloc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with colloc.  If not, see <http://www.gnu.org/licenses/>.
*/

package pandora

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the root of the PGN data archive.
const DefaultBaseURL = "https://data.hetzner.pandonia-global-network.org/"

// Downloader retrieves level-2 files from the PGN data archive, which
// is organized as <station>/<instrument>/L2/<file>.
type Downloader struct {
	// BaseURL is the root of the archive.
	BaseURL string

	// Dir is where downloaded files are saved.
	Dir string

	// Product is the data product to download.
	Product string

	// Client is used for HTTP requests.
	Client *http.Client

	// Limiter paces requests to the server.
	Limiter *rate.Limiter

	// MaxRetries is the number of times a failed request is retried.
	MaxRetries uint64

	// Log receives progress messages.
	Log logrus.FieldLogger
}

// NewDownloader returns a Downloader that saves rnvs3 files from
// baseURL into dir, making at most one request per interval.
func NewDownloader(baseURL, dir string, interval time.Duration, maxRetries int) *Downloader {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Downloader{
		BaseURL:    baseURL,
		Dir:        dir,
		Product:    Product,
		Client:     http.DefaultClient,
		Limiter:    rate.NewLimiter(rate.Every(interval), 1),
		MaxRetries: uint64(maxRetries),
		Log:        logrus.StandardLogger(),
	}
}

// statusError is an unsuccessful HTTP response.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("pandora: GET %s: %d %s", e.url, e.status, http.StatusText(e.status))
}

// temporary reports whether the request might succeed if retried.
func (e *statusError) temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// get retrieves the contents of u, retrying temporary failures with
// exponential backoff.
func (d *Downloader) get(ctx context.Context, u string) ([]byte, error) {
	var body []byte
	var permanent error
	operation := func() error {
		if err := d.Limiter.Wait(ctx); err != nil {
			permanent = err
			return nil
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			permanent = err
			return nil
		}
		resp, err := d.Client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				permanent = ctx.Err()
				return nil
			}
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			serr := &statusError{url: u, status: resp.StatusCode}
			if serr.temporary() {
				return serr
			}
			permanent = serr
			return nil
		}
		body, err = ioutil.ReadAll(resp.Body)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.MaxRetries), ctx)
	err := backoff.RetryNotify(operation, bo, func(err error, wait time.Duration) {
		d.Log.WithFields(logrus.Fields{"url": u, "wait": wait}).Warnf("%v: retrying", err)
	})
	if err != nil {
		return nil, err
	}
	if permanent != nil {
		return nil, permanent
	}
	return body, nil
}

// links returns the targets of the relative links on the HTML page at
// u that point below u. Sorting and navigation links, which start
// with '?' or '/', are ignored.
func (d *Downloader) links(ctx context.Context, u *url.URL) ([]*url.URL, error) {
	b, err := d.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("pandora: parsing %s: %v", u, err)
	}
	var out []*url.URL
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" || a.Val == "" || strings.HasPrefix(a.Val, "?") || strings.HasPrefix(a.Val, "/") {
					continue
				}
				ref, err := url.Parse(a.Val)
				if err != nil || ref.IsAbs() {
					continue
				}
				r := u.ResolveReference(ref)
				if r.Path == u.Path || !strings.HasPrefix(r.Path, u.Path) {
					continue // Not below u.
				}
				out = append(out, r)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return out, nil
}

// subdirectories returns the links in page that are directories.
func (d *Downloader) subdirectories(ctx context.Context, page *url.URL) ([]*url.URL, error) {
	links, err := d.links(ctx, page)
	if err != nil {
		return nil, err
	}
	var dirs []*url.URL
	for _, l := range links {
		if strings.HasSuffix(l.Path, "/") {
			dirs = append(dirs, l)
		}
	}
	return dirs, nil
}

// sanitize makes s safe for use in a file name.
func sanitize(s string) string {
	s = strings.Trim(s, "/")
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(s)
}

// Download retrieves all files of the requested product that are not
// already in d.Dir and returns the number of files that were
// downloaded. Instruments whose L2 directory cannot be listed are
// skipped.
func (d *Downloader) Download(ctx context.Context) (int, error) {
	base, err := url.Parse(d.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("pandora: base URL: %v", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if err := os.MkdirAll(d.Dir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("pandora: %v", err)
	}
	stations, err := d.subdirectories(ctx, base)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, station := range stations {
		instruments, err := d.subdirectories(ctx, station)
		if err != nil {
			return n, err
		}
		for _, instrument := range instruments {
			l2 := instrument.ResolveReference(&url.URL{Path: "L2/"})
			files, err := d.links(ctx, l2)
			if err != nil {
				if ctx.Err() != nil {
					return n, ctx.Err()
				}
				d.Log.WithFields(logrus.Fields{"url": l2.String()}).Warnf("skipping: %v", err)
				continue
			}
			for _, f := range files {
				name := filepath.Base(f.Path)
				if !strings.Contains(name, d.Product) || !strings.HasSuffix(name, ".txt") {
					continue
				}
				local := filepath.Join(d.Dir, fmt.Sprintf("%s_%s_%s",
					sanitize(filepath.Base(station.Path)), sanitize(filepath.Base(instrument.Path)), name))
				if _, err := os.Stat(local); err == nil {
					continue
				}
				d.Log.WithFields(logrus.Fields{"url": f.String()}).Info("downloading")
				b, err := d.get(ctx, f.String())
				if err != nil {
					return n, err
				}
				if err := writeFile(local, b); err != nil {
					return n, err
				}
				n++
			}
		}
	}
	return n, nil
}

// writeFile writes b to path by way of a temporary file so that
// an interrupted download does not leave a partial file at path.
func writeFile(path string, b []byte) error {
	tmp := path + ".part"
	if err := ioutil.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("pandora: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pandora: %v", err)
	}
	return nil
}
