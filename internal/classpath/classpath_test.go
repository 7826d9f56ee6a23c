package classpath

import "testing"

func TestSimpleNameOf(t *testing.T) {
	cases := map[string]string{
		"com.example.Lib": "Lib",
		"Lib":             "Lib",
		"a.b.c.D":         "D",
	}
	for fqcn, want := range cases {
		if got := simpleNameOf(fqcn); got != want {
			t.Errorf("simpleNameOf(%q) = %q, want %q", fqcn, got, want)
		}
	}
}

func TestClassRelPathToFQCN(t *testing.T) {
	got := classRelPathToFQCN("com/example/Lib.class")
	if got != "com.example.Lib" {
		t.Errorf("classRelPathToFQCN = %q, want com.example.Lib", got)
	}
}

func TestJarIndexSkipsSyntheticMembers(t *testing.T) {
	idx := newJarIndex("test.jar")
	idx.add(ClassEntry{FQCN: "com.example.Outer$Inner", SimpleName: "Outer$Inner"})
	idx.add(ClassEntry{FQCN: "com.example.Outer", SimpleName: "Outer"})

	if _, ok := idx.byFQCN["com.example.Outer$Inner"]; ok {
		t.Error("synthetic/anonymous member should have been skipped")
	}
	if _, ok := idx.byFQCN["com.example.Outer"]; !ok {
		t.Error("expected com.example.Outer to be indexed")
	}
}

func TestClasspathServiceFindClassAfterRebuild(t *testing.T) {
	s := New()
	// Rebuild against a nonexistent path exercises the error-collection
	// path without requiring a real JAR fixture on disk.
	err := s.Rebuild([]string{"/nonexistent/path/does/not/exist"})
	if err == nil {
		t.Fatal("expected an error for a nonexistent classpath root")
	}
	if _, ok := s.FindClass("anything.AtAll"); ok {
		t.Error("FindClass should miss against an empty index")
	}
}

func TestClasspathServiceCloseInvalidatesLookups(t *testing.T) {
	s := New()
	s.byFQCN["com.example.Lib"] = ClassEntry{FQCN: "com.example.Lib"}
	s.Close()
	if _, ok := s.FindClass("com.example.Lib"); ok {
		t.Error("FindClass should miss after Close")
	}
}
