// Copyright (c) 2026 The Okavango Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package fetch

import (
	"fmt"
)

// indicates that a dataset could not be retrieved from its remote source
type DownloadError struct {
	Dataset, URL string
	Cause        error
}

func (e DownloadError) Error() string {
	return fmt.Sprintf("Couldn't download dataset '%s' from %s: %s",
		e.Dataset, e.URL, e.Cause.Error())
}

func (e DownloadError) Unwrap() error {
	return e.Cause
}

// indicates that a remote source answered with a non-2xx status
type BadStatusError struct {
	URL        string
	StatusCode int
}

func (e BadStatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// indicates that a fetched dataset could not be written to local storage
type WriteError struct {
	Dataset, Path string
	Cause         error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("Couldn't write dataset '%s' to %s: %s",
		e.Dataset, e.Path, e.Cause.Error())
}

func (e WriteError) Unwrap() error {
	return e.Cause
}

// this error type is emitted if an endpoint redirects an HTTPS request to an
// HTTP endpoint (it's NUTS that this can happen!)
type DowngradedRedirectError struct {
	Endpoint string
}

func (e DowngradedRedirectError) Error() string {
	return fmt.Sprintf("The endpoint %s is attempting to downgrade an HTTPS request to HTTP",
		e.Endpoint)
}
