// Package content embeds the shipped rulesets, scenarios and policy scripts.
package content

import "embed"

// FS holds every shipped content file, rooted at the content directory.
//
//go:embed rulesets/classic/*.yaml scenarios/*.yaml scripts/policy
var FS embed.FS

// ClassicRulesetDir is the directory of the classic ruleset inside FS.
const ClassicRulesetDir = "rulesets/classic"

// PolicyDir is the directory of the shipped policy scripts inside FS.
const PolicyDir = "scripts/policy"
