// Package classfile reads JVM .class files: the constant pool, access
// flags, and field/method tables needed to recover a class's name,
// superclass, interfaces, and member signatures without running a JVM.
// The format itself is JVM bytecode, not Groovy or Java source; it is
// exactly as relevant to a Groovy classpath (Groovy compiles to the same
// bytecode) as it was to the Java toolchain this package was carried over
// from, so the constant-pool and attribute parsing here is kept close to
// that original rather than rewritten: there is no Groovy-specific
// behavior to add to "decode a compiled class file." internal/classpath is
// this package's sole consumer, turning dependency JARs into a queryable
// index of the classes and members they contain.
package classfile
