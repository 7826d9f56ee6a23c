// Package pom resolves a Maven dependency graph: parsing pom.xml (including
// parent inheritance and property interpolation), fetching transitive
// dependency POMs, and mediating version conflicts with Maven's
// nearest-wins-then-declaration-order rule. A Groovy project built with
// Maven declares the same pom.xml shape as a Java one and needs the same
// transitive-closure and version-mediation logic. internal/workspace drives
// this package for pom.xml-based projects, the same way it drives
// internal/gradleresolve for build.gradle-based ones, and normalizes both
// into the same dependency-list shape the classpath and flavor layers
// consume.
package pom
