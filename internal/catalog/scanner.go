package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultIgnore are directory names never descended into.
var DefaultIgnore = []string{
	".git",
	".svn",
	".build",
	".swiftpm",
	"node_modules",
	"DerivedData",
	"Pods",
	"Carthage",
	"vendor",
	"xcuserdata",
}

const (
	workspaceExt = ".xcworkspace"
	projectExt   = ".xcodeproj"
	packageFile  = "Package.swift"
)

// Scanner walks a set of roots looking for project directories. A directory
// is a project if it holds a workspace, a project bundle, a Package.swift or
// an .xcf.yaml manifest; its children are not scanned further.
type Scanner struct {
	roots    []string
	maxDepth int
	ignore   []string
	logger   *zap.Logger
}

// NewScanner creates a scanner over roots. maxDepth counts directory levels
// below each root; the root itself is depth 0.
func NewScanner(roots []string, maxDepth int, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		roots:    roots,
		maxDepth: maxDepth,
		ignore:   DefaultIgnore,
		logger:   logger,
	}
}

// List scans every root. Unreadable roots and directories are logged and
// skipped, so the result may be empty but never fails.
func (s *Scanner) List(ctx context.Context) []Entry {
	seen := make(map[string]bool)
	var entries []Entry

	for _, root := range s.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			s.logger.Warn("resolving catalog root", zap.String("root", root), zap.Error(err))
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			s.logger.Warn("catalog root unavailable", zap.String("root", abs), zap.Error(err))
			continue
		}

		found, err := s.scanRoot(ctx, abs)
		if err != nil {
			s.logger.Warn("catalog scan interrupted", zap.String("root", abs), zap.Error(err))
		}
		for _, e := range found {
			if !seen[e.Path] {
				seen[e.Path] = true
				entries = append(entries, e)
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	s.logger.Debug("catalog scanned", zap.Int("projects", len(entries)), zap.Strings("roots", s.roots))
	return entries
}

func (s *Scanner) scanRoot(ctx context.Context, root string) ([]Entry, error) {
	var found []Entry
	rootDepth := strings.Count(root, string(filepath.Separator))

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if path != root {
			if strings.HasSuffix(name, workspaceExt) || strings.HasSuffix(name, projectExt) {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") || s.ignored(name) {
				return filepath.SkipDir
			}
		}

		if e, ok := s.detect(path); ok {
			found = append(found, e)
			return filepath.SkipDir
		}
		if strings.Count(path, string(filepath.Separator))-rootDepth >= s.maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	return found, err
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// detect inspects one directory's immediate children for project markers.
func (s *Scanner) detect(dir string) (Entry, bool) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return Entry{}, false
	}

	var workspace, project string
	var hasPackage, hasManifest bool
	for _, c := range children {
		name := c.Name()
		switch {
		case c.IsDir() && strings.HasSuffix(name, workspaceExt) && workspace == "":
			workspace = name
		case c.IsDir() && strings.HasSuffix(name, projectExt) && project == "":
			project = name
		case !c.IsDir() && name == packageFile:
			hasPackage = true
		case !c.IsDir() && name == ManifestName:
			hasManifest = true
		}
	}

	e := Entry{Path: dir, Name: filepath.Base(dir)}
	switch {
	case workspace != "":
		e.Kind = KindWorkspace
		e.Target = filepath.Join(dir, workspace)
		e.Name = strings.TrimSuffix(workspace, workspaceExt)
	case project != "":
		e.Kind = KindProject
		e.Target = filepath.Join(dir, project)
		e.Name = strings.TrimSuffix(project, projectExt)
	case hasPackage:
		e.Kind = KindPackage
	case hasManifest:
		e.Kind = KindManifest
	default:
		return Entry{}, false
	}

	if hasManifest {
		m, err := LoadManifest(filepath.Join(dir, ManifestName))
		if err != nil {
			s.logger.Warn("ignoring unreadable manifest", zap.String("dir", dir), zap.Error(err))
		} else {
			e.Manifest = m
			if m.Name != "" {
				e.Name = m.Name
			}
		}
	}
	return e, true
}
