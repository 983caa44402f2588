// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	EntryNotFoundId Id = iota + 1
	MissingDependencyId
	SyntaxErrorId
	DependencyCycleId
	ConfigLoadFailedId
	CompilerNotFoundId
	CompileFailedId
	InvalidFormatId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	entryNotFoundIssue = &Issue{
		id: EntryNotFoundId,
		mdMsg: `
# Entry file not found!

The root file of a bundle does not exist.

## Things you can try:
- Check the ` + "`entries`" + ` list in your jsroll.cue
- Paths are relative to ` + "`source_dir`" + `, not to the current directory
- List the candidate entries of your source tree:
~~~
$ jsroll graph --entries
~~~`,
	}

	missingDependencyIssue = &Issue{
		id: MissingDependencyId,
		mdMsg: `
# Missing dependency!

A ` + "`//#require`" + ` directive names a file that does not exist.

## How references resolve:
1. The reference is joined to the source directory, not to the requiring file
2. ` + "`.js`" + ` is appended unless the reference already ends with it or names a directory

## Things you can try:
- Fix the spelling of the reference at the reported line
- Write the path from the source root, e.g. ` + "`//#require \"libs/util\"`",
	}

	syntaxErrorIssue = &Issue{
		id: SyntaxErrorId,
		mdMsg: `
# Syntax check failed!

The compiler rejected one of the files in the bundle.

## Things you can try:
- Run the compiler on the reported file alone to see its diagnostics
- Build without the check while you investigate:
~~~
$ jsroll roll
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Two or more files require each other, so no order puts every file after its
dependencies.

## Things you can try:
- Move the shared code into a new file both sides require
- Inspect the graph to find the loop:
~~~
$ jsroll graph --format svg -o deps.svg
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Check the CUE syntax of the file
- Compare with the defaults:
~~~
$ jsroll config dump
~~~

- Start over from a fresh file:
~~~
$ jsroll config init --force
~~~`,
	}

	compilerNotFoundIssue = &Issue{
		id: CompilerNotFoundId,
		mdMsg: `
# Closure Compiler not found!

Compression and syntax checks need the Closure Compiler jar and a Java runtime.

## Things you can try:
- Point ` + "`compiler.jar`" + ` at the jar in your jsroll.cue
- Check that ` + "`java`" + ` is on your PATH, or set ` + "`compiler.java`" + `
- Skip compression entirely:
~~~
$ jsroll roll -c NONE
~~~`,
		extLinks: []HttpLink{"https://github.com/google/closure-compiler"},
	}

	compileFailedIssue = &Issue{
		id: CompileFailedId,
		mdMsg: `
# Compilation failed!

The compiler exited with an error while compressing a bundle.

## Things you can try:
- Run with ` + "`--verbose`" + ` to see the compiler output
- Retry with a less aggressive level:
~~~
$ jsroll roll -c WHITESPACE_ONLY
~~~`,
	}

	invalidFormatIssue = &Issue{
		id: InvalidFormatId,
		mdMsg: `
# Invalid output format!

## Valid formats:
- ` + "`tags`" + `: one ` + "`<script>`" + ` tag per file
- ` + "`paths`" + `: one path per line
- ` + "`json`" + ` / ` + "`yaml`" + `: a list of paths`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

jsroll could not read a source file or write to the build directory.

## Things you can try:
- Check the permissions of ` + "`build_dir`" + ` and its parent
- Make sure no other process holds the build output open`,
	}

	issues = map[Id]*Issue{
		entryNotFoundIssue.Id():     entryNotFoundIssue,
		missingDependencyIssue.Id(): missingDependencyIssue,
		syntaxErrorIssue.Id():       syntaxErrorIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		compilerNotFoundIssue.Id():  compilerNotFoundIssue,
		compileFailedIssue.Id():     compileFailedIssue,
		invalidFormatIssue.Id():     invalidFormatIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for i := range maps.Values(issues) {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
