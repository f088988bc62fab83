/*
Copyright © 2024 the InSOC authors.
This file is part of InSOC.

InSOC is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InSOC is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InSOC.  If not, see <http://www.gnu.org/licenses/>.*/

package climdata

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// MaybeDownload returns a local path for the given input path,
// downloading to a temporary directory first when the path is an
// http(s) URL. Shapefile sidecar files (.dbf, .shx, .prj) are brought
// along. Messages go to c if it is not nil; when a download fails the
// original path is returned unchanged.
func MaybeDownload(path string, c chan string) string {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path
	}
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return path
	}
	dir, err := os.MkdirTemp("", "insoc")
	if err != nil {
		say(c, fmt.Sprintf("climdata: creating download directory: %v", err))
		return path
	}
	for _, u := range expandShp(path) {
		say(c, fmt.Sprintf("downloading %s", u))
		if err := fetch(u, filepath.Join(dir, filepath.Base(u)), c); err != nil {
			say(c, fmt.Sprintf("climdata: downloading %s: %v", u, err))
			return path
		}
	}
	return filepath.Join(dir, filepath.Base(path))
}

func say(c chan string, msg string) {
	if c != nil {
		c <- msg
	}
}

// expandShp returns the given file name plus the names of its sidecar
// files if it is a shapefile.
func expandShp(filename string) []string {
	o := []string{filename}
	if filepath.Ext(filename) != ".shp" {
		return o
	}
	for _, ext := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+ext)
	}
	return o
}

func fetch(url, dst string, c chan string) error {
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer w.Close()
	return backoff.RetryNotify(
		func() error {
			resp, err := http.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status %s", resp.Status)
			}
			if _, err := w.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(err)
			}
			if err := w.Truncate(0); err != nil {
				return backoff.Permanent(err)
			}
			_, err = io.Copy(w, resp.Body)
			return err
		},
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			say(c, fmt.Sprintf("%v: retrying in %v", err, d))
		},
	)
}
