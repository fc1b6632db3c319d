// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppDataDir returns an operating system specific directory that can be used
// for storing application data for the given application name ("nyxd",
// "nyxwallet", ...). appName is capitalized for Windows/macOS since that is
// the common convention on those platforms; roaming controls whether the
// Windows result uses %APPDATA% (true) or %LOCALAPPDATA% (false).
func AppDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := string(unicodeToUpper(rune(appName[0]))) + appName[1:]
	appNameLower := strings.ToLower(appName)

	var homeDir string
	usr, err := currentUserHomeDir()
	if err == nil {
		homeDir = usr
	}
	if homeDir == "" {
		homeDir = os.Getenv("HOME")
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}
	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appNameLower)
		}
	default:
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appNameLower)
		}
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	// Fall back to the current directory if the OS-specific home couldn't
	// be determined.
	return "."
}

func unicodeToUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func currentUserHomeDir() (string, error) {
	return os.UserHomeDir()
}
