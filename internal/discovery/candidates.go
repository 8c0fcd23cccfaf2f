package discovery

import (
	"fmt"
	"strings"
)

// Share identifies the remote share whose local mount point is searched for.
type Share struct {
	Server       string   // e.g. 10.12.100.19
	Name         string   // e.g. t$
	Path         string   // directory inside the share, slash separated
	MountName    string   // name used for static mounts under /mnt and /media
	Port         int      // file-sharing TCP port
	FallbackUID  int      // session id tried when the current uid has no mount
	DriveLetters []string // mapped-drive letters tried on Windows
}

// Env is the part of the process environment that changes mount locations.
type Env struct {
	UID  int
	User string
}

// Candidates returns the plausible local paths of share on goos, most likely
// first. Unknown operating systems yield nil.
func Candidates(goos string, share Share, env Env) []string {
	switch goos {
	case "linux":
		return dedupe(linuxCandidates(share, env))
	case "windows":
		return dedupe(windowsCandidates(share))
	default:
		return nil
	}
}

func linuxCandidates(s Share, env Env) []string {
	user := env.User
	if user == "" {
		user = "user"
	}
	sub := strings.Trim(s.Path, "/")
	gvfs := fmt.Sprintf("smb-share:server=%s,share=%s/%s", s.Server, s.Name, sub)
	static := fmt.Sprintf("%s/%s", s.Name, sub)

	return []string{
		// Per-session gvfs mounts.
		fmt.Sprintf("/run/user/%d/gvfs/%s", env.UID, gvfs),
		fmt.Sprintf("/run/user/%d/gvfs/%s", s.FallbackUID, gvfs),

		fmt.Sprintf("/home/%s/.gvfs/%s", user, gvfs),
		fmt.Sprintf("/home/%s/gvfs/%s", user, gvfs),

		// cifs mounts made by hand or from fstab.
		fmt.Sprintf("/mnt/%s/%s", s.MountName, sub),
		fmt.Sprintf("/mnt/%s/%s", s.Server, static),
		fmt.Sprintf("/media/%s/%s", s.MountName, sub),
		fmt.Sprintf("/media/%s/%s", s.Server, static),

		fmt.Sprintf("/media/%s", gvfs),
		fmt.Sprintf("/var/run/user/%d/gvfs/%s", s.FallbackUID, gvfs),
	}
}

func windowsCandidates(s Share) []string {
	sub := strings.ReplaceAll(strings.Trim(s.Path, "/"), "/", `\`)

	out := []string{fmt.Sprintf(`\\%s\%s\%s`, s.Server, s.Name, sub)}
	for _, letter := range s.DriveLetters {
		letter = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(letter), ":"))
		if letter == "" {
			continue
		}
		out = append(out, fmt.Sprintf(`%s:\%s`, letter, sub))
	}
	return out
}

// dedupe drops repeated paths, keeping the first occurrence.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
