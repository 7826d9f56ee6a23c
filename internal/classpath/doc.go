// Package classpath implements the ClasspathService described by the core
// pipeline: it turns a set of dependency roots (JAR files or expanded
// directory trees) into a queryable index from fully qualified class name to
// the URI of the .class member that defines it. DefinitionResolver's binary
// fallback tier (internal/resolve) is the sole consumer.
package classpath
