package pty

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const passwdFile = "/etc/passwd"

// fallbackShells are tried after the configured and login shells.
var fallbackShells = []string{"/bin/bash", "/bin/zsh", "/bin/sh"}

// DetectShell returns the first executable shell among: override
// (PARTERM_SHELL_PATH), $SHELL, the current user's login shell in
// /etc/passwd, then fallbackShells. A non-empty override is trusted as is so
// that a bad value surfaces as a spawn error.
func DetectShell(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	candidates := []string{os.Getenv("SHELL")}
	if login, err := passwdShell(passwdFile, os.Getuid()); err == nil {
		candidates = append(candidates, login)
	}
	candidates = append(candidates, fallbackShells...)

	for _, c := range candidates {
		if c != "" && isExecutable(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no shell found: checked $SHELL, %s and %s",
		passwdFile, strings.Join(fallbackShells, ", "))
}

// passwdShell returns the login shell recorded for uid in a passwd file.
func passwdShell(path string, uid int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	want := strconv.Itoa(uid)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// name:passwd:uid:gid:gecos:home:shell
		fields := strings.Split(line, ":")
		if len(fields) != 7 || fields[2] != want {
			continue
		}
		if fields[6] == "" {
			return "", fmt.Errorf("no shell for uid %d in %s", uid, path)
		}
		return fields[6], nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("uid %d not found in %s", uid, path)
}

// isExecutable reports whether path is a regular file the current user may
// execute.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
