//go:build darwin

package sandboxprofile

// MountSpecs renders a SandboxProfile's mounts into Apple Containers'
// "source:target[:ro]" flag syntax, the way the teacher's
// sandbox/apple.go buildMounts does. Policy validation (spec §4.1) already
// rejected any path containing a DSL metacharacter before a profile ever
// reaches this stage, so no further escaping is attempted here — this
// function only formats, it does not sanitize.
func (p SandboxProfile) MountSpecs() []string {
	specs := make([]string, 0, len(p.Mounts))
	for _, m := range p.Mounts {
		spec := m.Path + ":" + m.Path
		if m.ReadOnly {
			spec += ":ro"
		}
		specs = append(specs, spec)
	}
	return specs
}

// DenyTmpfsArgs renders deny paths into the repeated --deny flag form the
// teacher's Linux deny-init wrapper uses, reused here for the Darwin
// container init's equivalent mask list.
func (p SandboxProfile) DenyTmpfsArgs() []string {
	var args []string
	for _, d := range p.DenyPaths {
		args = append(args, "--deny", d)
	}
	return args
}
