// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the version of the divid tools and the numeric client
// version stamped on persisted files.
package version

import (
	"fmt"
	"strings"
)

// These constants define the application version.  The string form follows
// semantic versioning 2.0.0 and leaves out Build.
const (
	Major uint = 2
	Minor uint = 0
	Patch uint = 0
	Build uint = 0
)

// ClientVersion is the numeric version written into persisted files so readers
// can refuse formats they do not understand.
const ClientVersion = int32(1000000*Major + 10000*Minor + 100*Patch + Build)

// semverChars are the characters allowed in the pre-release and build
// metadata parts.  Build metadata additionally allows dots.
const semverChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

var (
	// PreRelease and BuildMetadata can be overridden at link time with
	// '-ldflags "-X github.com/divi-project/divid/internal/version.PreRelease=foo"'.
	// Characters outside semverChars are dropped.
	PreRelease    = "pre"
	BuildMetadata = "dev"
)

// keepChars returns str without the characters missing from allowed.
func keepChars(str, allowed string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(allowed, r) {
			return r
		}
		return -1
	}, str)
}

// String returns the version as major.minor.patch followed by the optional
// -prerelease and +build parts.
func String() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if pre := keepChars(PreRelease, semverChars); pre != "" {
		v += "-" + pre
	}
	if build := keepChars(BuildMetadata, semverChars+"."); build != "" {
		v += "+" + build
	}
	return v
}
