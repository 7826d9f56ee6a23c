package classpath

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/albertocavalcante/groovy-lsp/internal/classfile"
	"github.com/albertocavalcante/groovy-lsp/internal/position"
)

// ClassEntry is one indexed class: where it lives and what it's called.
type ClassEntry struct {
	FQCN       string
	SimpleName string
	URI        position.URI
}

// JarIndex indexes the classes inside a single JAR (or directory) root.
type JarIndex struct {
	root     string
	byFQCN   map[string]ClassEntry
	bySimple map[string][]ClassEntry
}

func newJarIndex(root string) *JarIndex {
	return &JarIndex{
		root:     root,
		byFQCN:   make(map[string]ClassEntry),
		bySimple: make(map[string][]ClassEntry),
	}
}

func (idx *JarIndex) add(e ClassEntry) {
	if strings.Contains(e.SimpleName, "$") {
		return // synthetic/anonymous class
	}
	idx.byFQCN[e.FQCN] = e
	idx.bySimple[e.SimpleName] = append(idx.bySimple[e.SimpleName], e)
}

// ClasspathService indexes every entry of the current classpath (JAR files
// and directory roots), rebuilt whenever dependencies change.
type ClasspathService struct {
	mu      sync.RWMutex
	entries []string // the classpath roots this index was built from
	byFQCN  map[string]ClassEntry
	closed  bool
}

func New() *ClasspathService {
	return &ClasspathService{byFQCN: make(map[string]ClassEntry)}
}

// Rebuild replaces the index with entries scanned from classpath roots
// (each either a .jar file or a directory of .class files).
func (s *ClasspathService) Rebuild(classpath []string) error {
	byFQCN := make(map[string]ClassEntry)
	var errs []string

	for _, root := range classpath {
		idx, err := indexRoot(root)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for fqcn, e := range idx.byFQCN {
			byFQCN[fqcn] = e
		}
	}

	s.mu.Lock()
	s.entries = classpath
	s.byFQCN = byFQCN
	s.closed = false
	s.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("classpath indexing errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// FindClass locates pkg/Name.class on the classpath, returning a jar:file:
// URI for JAR members or a file: URI for directory entries.
func (s *ClasspathService) FindClass(fqcn string) (position.URI, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false
	}
	e, ok := s.byFQCN[fqcn]
	return e.URI, ok
}

// Close tears down the index; called when dependencies change and the
// classloader is invalidated.
func (s *ClasspathService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.byFQCN = make(map[string]ClassEntry)
}

func indexRoot(root string) (*JarIndex, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if info.IsDir() {
		return indexDirectory(root)
	}
	if strings.EqualFold(filepath.Ext(root), ".jar") {
		return indexJarFile(root)
	}
	return newJarIndex(root), nil
}

func indexDirectory(root string) (*JarIndex, error) {
	idx := newJarIndex(root)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".class" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		addClassEntry(idx, data, position.FromPath(path), classRelPathToFQCN(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return idx, nil
}

func indexJarFile(jarPath string) (*JarIndex, error) {
	idx := newJarIndex(jarPath)
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, fmt.Errorf("open jar %s: %w", jarPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch filepath.Ext(f.Name) {
		case ".class":
			if err := indexZipClassEntry(idx, f, jarPath); err != nil {
				continue
			}
		case ".jar":
			// nested jar-in-jar (spring-boot style fat archives)
			indexNestedJar(idx, f, jarPath)
		}
	}
	return idx, nil
}

func indexZipClassEntry(idx *JarIndex, f *zip.File, jarPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	uri := position.URI(fmt.Sprintf("jar:file://%s!/%s", jarPath, f.Name))
	addClassEntry(idx, data, uri, classRelPathToFQCN(f.Name))
	return nil
}

func indexNestedJar(idx *JarIndex, outer *zip.File, outerJarPath string) {
	rc, err := outer.Open()
	if err != nil {
		return
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return
	}
	inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return
	}
	for _, f := range inner.File {
		if f.FileInfo().IsDir() || filepath.Ext(f.Name) != ".class" {
			continue
		}
		frc, err := f.Open()
		if err != nil {
			continue
		}
		classData, err := io.ReadAll(frc)
		frc.Close()
		if err != nil {
			continue
		}
		uri := position.URI(fmt.Sprintf("jar:file://%s!/%s!/%s", outerJarPath, outer.Name, f.Name))
		addClassEntry(idx, classData, uri, classRelPathToFQCN(f.Name))
	}
}

func addClassEntry(idx *JarIndex, classBytes []byte, uri position.URI, fallbackFQCN string) {
	fqcn := fallbackFQCN
	if cf, err := classfile.Parse(bytes.NewReader(classBytes)); err == nil {
		if name := cf.ClassName(); name != "" {
			fqcn = strings.ReplaceAll(name, "/", ".")
		}
	}
	if fqcn == "" {
		return
	}
	idx.add(ClassEntry{
		FQCN:       fqcn,
		SimpleName: simpleNameOf(fqcn),
		URI:        uri,
	})
}

func classRelPathToFQCN(relPath string) string {
	noExt := strings.TrimSuffix(relPath, ".class")
	return strings.ReplaceAll(noExt, string(filepath.Separator), ".")
}

func simpleNameOf(fqcn string) string {
	if i := strings.LastIndexByte(fqcn, '.'); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}
