// Package naming resolves a ClipTask's absolute output path from a
// naming template, the source path, and the job's resolved settings.
package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Venkmine/proxyforge/internal/apperr"
)

// Params is everything the resolver needs beyond the raw template.
type Params struct {
	SourcePath         string
	OutputDirectory    string
	NamingTemplate     string
	Prefix             string
	Suffix             string
	Container          string // target container, determines the output extension
	Index              int    // 1-based position within the job
	PreserveSourceDirs bool
	PreserveDirLevels  int
	SourceRoot         string // base directory source paths are relative to, when PreserveSourceDirs is set
}

// containerExtensions maps a normalised container name to its output
// file extension; kept separate from capability's routing table since
// this is a naming concern, not a routing one.
var containerExtensions = map[string]string{
	"mp4": "mp4",
	"mov": "mov",
	"mkv": "mkv",
	"mxf": "mxf",
}

// Resolve renders the template against p and returns the absolute
// output path. Supported tokens: {source_name} (source basename
// without extension), {index} (1-based, zero-padded to 3 digits).
func Resolve(p Params) (string, error) {
	base := filepath.Base(p.SourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	rendered := p.NamingTemplate
	rendered = strings.ReplaceAll(rendered, "{source_name}", name)
	rendered = strings.ReplaceAll(rendered, "{index}", fmt.Sprintf("%03d", p.Index))

	filename := p.Prefix + rendered + p.Suffix

	ext, ok := containerExtensions[strings.ToLower(strings.TrimPrefix(p.Container, "."))]
	if !ok {
		return "", apperr.New(apperr.TagCodecContainerMismatch,
			fmt.Sprintf("no known output extension for container %q", p.Container))
	}
	filename = filename + "." + ext

	dir := p.OutputDirectory
	if p.PreserveSourceDirs {
		rel, err := filepath.Rel(p.SourceRoot, filepath.Dir(p.SourcePath))
		if err == nil && rel != "." {
			parts := strings.Split(rel, string(filepath.Separator))
			if p.PreserveDirLevels > 0 && len(parts) > p.PreserveDirLevels {
				parts = parts[len(parts)-p.PreserveDirLevels:]
			}
			dir = filepath.Join(dir, filepath.Join(parts...))
		}
	}

	return filepath.Join(dir, filename), nil
}

// CollisionGuard deduplicates output paths within a single job: the
// naming-template-uniqueness validator (§4.2) prevents the common
// case, but mixed prefixes/suffixes across clips sharing a
// {source_name} could still collide, so callers should route every
// resolved path for a job through Seen before accepting it.
type CollisionGuard struct {
	seen map[string]bool
}

// NewCollisionGuard returns an empty guard.
func NewCollisionGuard() *CollisionGuard {
	return &CollisionGuard{seen: make(map[string]bool)}
}

// Seen records path and reports whether it was already resolved once
// before in this job — a true collision the caller must fail on.
func (g *CollisionGuard) Seen(path string) bool {
	if g.seen[path] {
		return true
	}
	g.seen[path] = true
	return false
}

// indexSuffix returns i as an unpadded decimal string. It is
// unexported and nothing in the package calls it.
func indexSuffix(i int) string {
	return strconv.Itoa(i)
}
