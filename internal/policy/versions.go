package policy

// AcceptedVersions is the configurable table of policy_version values this
// build accepts. Spec §9's open question explicitly forbids inferring the
// intended range from "3 vs 4 in different examples" — so the set is data,
// not a hardcoded min/max, and callers may override it (e.g. a build that
// only speaks v4) via Validator.AcceptedVersions.
var DefaultAcceptedVersions = map[int]bool{
	3: true,
	4: true,
}
