// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	GameDirNotFoundId Id = iota + 1
	PlayerConfigMissingId
	ConfigLoadFailedId
	DependencyCycleId
	MissingDependencyId
	ConflictId
	OverrideId
	PermissionDeniedId
	CacheCorruptId
	PresetNotFoundId
	WatchLimitId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // name accepted by `modsmith issue <name>`
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
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

// Render renders the issue page with the given glamour style ("dark",
// "light", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		md += sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	gameDirNotFoundIssue = &Issue{
		id:   GameDirNotFoundId,
		name: "game-dir",
		mdMsg: `
# Game directory not found!

modsmith needs the game installation directory to find LocalMods,
config_player.xml and the preset folder.

## Things you can try:
- Set it once in your config file:
~~~cue
game_dir: "/path/to/Barotrauma"
~~~

- Or pass it for a single run:
~~~
$ modsmith --game-dir /path/to/Barotrauma list
~~~

- Or use the environment:
~~~
$ export MODSMITH_GAME_DIR=/path/to/Barotrauma
~~~`,
	}

	playerConfigMissingIssue = &Issue{
		id:   PlayerConfigMissingId,
		name: "player-config",
		mdMsg: `
# config_player.xml not found!

The active package list is stored in the game's config_player.xml, which the
game creates on first launch.

## Things you can try:
- Start the game once and quit from the main menu
- Check that ` + "`game_dir`" + ` points at the directory containing the game executable`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config",
		mdMsg: `
# Failed to load configuration!

The configuration file is not valid CUE or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ modsmith config show
~~~

- Write a fresh default file:
~~~
$ modsmith config init
~~~

## Example configuration:
~~~cue
game_dir: "/games/Barotrauma"
workshop_sync_dir: ""
steam_mod_dir: "/steam/steamapps/workshop/content/602960"
workers: 0
log_level: "info"
ui: {
	color_scheme: "auto"
	verbose: false
}
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id:   DependencyCycleId,
		name: "cycle",
		mdMsg: `
# Dependency cycle detected!

Some active packages require each other, directly or through other packages.
modsmith still produced an order, but at least one requirement could not be
honored.

## Things you can try:
- Run ` + "`modsmith sort`" + ` and read the packages reported as forced
- Deactivate one package of the cycle
- Ask the package authors which of them should load first`,
	}

	missingDependencyIssue = &Issue{
		id:   MissingDependencyId,
		name: "missing-dependency",
		mdMsg: `
# Required package is not active!

An active package declares a requirement or patch target that is not active.

## Things you can try:
- Run ` + "`modsmith sort`" + `; known requirements are activated automatically
- Subscribe to the missing package in the workshop, then run ` + "`modsmith sort`" + ` again
- If the requirement is conditional, check which packages enable the condition`,
	}

	conflictIssue = &Issue{
		id:   ConflictId,
		name: "conflict",
		mdMsg: `
# Conflicting packages are active!

Two active packages declare that they must not be used together.

## Things you can try:
- Deactivate one of them:
~~~
$ modsmith deactivate <id>
~~~`,
	}

	overrideIssue = &Issue{
		id:   OverrideId,
		name: "override",
		mdMsg: `
# Package overrides content from another package

A package replaces an identifier that another active package adds. This is
often intended; the override is ordered after the package it overrides.

## Things you can try:
- Set ` + "`IgnoreOverrideCheck`" + ` in the package's metadata.xml settings if the order does not matter`,
	}

	permissionDeniedIssue = &Issue{
		id:   PermissionDeniedId,
		name: "permission",
		mdMsg: `
# Permission denied!

modsmith rewrites package files, config_player.xml and its cache file.

## Things you can try:
- Close the game before applying changes
- Check that your user owns the game and workshop directories`,
	}

	cacheCorruptIssue = &Issue{
		id:   CacheCorruptId,
		name: "cache",
		mdMsg: `
# Package cache is unreadable

The cache was ignored and every package was scanned from disk.

## Things you can try:
- Clear it:
~~~
$ modsmith cache clear
~~~`,
	}

	presetNotFoundIssue = &Issue{
		id:   PresetNotFoundId,
		name: "preset",
		mdMsg: `
# Preset not found!

Presets are the XML files in the game's ModLists directory.

## Things you can try:
- List the available presets:
~~~
$ modsmith preset list
~~~

- Save the current active list as a preset:
~~~
$ modsmith preset save <name>
~~~`,
	}

	watchLimitIssue = &Issue{
		id:   WatchLimitId,
		name: "watch-limit",
		mdMsg: `
# The file watcher ran out of resources!

Every directory under the package roots needs its own watch. Large workshop
folders can exceed the operating system limits.

## Things you can try:
- On Linux, raise the inotify watch limit:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~

- Raise the open file limit of your shell:
~~~
$ ulimit -n 4096
~~~

- Ignore directories that never change:
~~~
$ modsmith watch --ignore "**/Music/**"
~~~`,
	}

	issues = map[Id]*Issue{
		gameDirNotFoundIssue.Id():     gameDirNotFoundIssue,
		playerConfigMissingIssue.Id(): playerConfigMissingIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		dependencyCycleIssue.Id():     dependencyCycleIssue,
		missingDependencyIssue.Id():   missingDependencyIssue,
		conflictIssue.Id():            conflictIssue,
		overrideIssue.Id():            overrideIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
		cacheCorruptIssue.Id():        cacheCorruptIssue,
		presetNotFoundIssue.Id():      presetNotFoundIssue,
		watchLimitIssue.Id():          watchLimitIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by name.
func Lookup(name string) (*Issue, bool) {
	for _, i := range issues {
		if i.name == name {
			return i, true
		}
	}
	return nil, false
}
