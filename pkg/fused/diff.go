package fused

// IsListUpdated reports whether a freshly fetched list differs from the one on screen.
// A size mismatch is a change; otherwise items are paired by position and compared
// structurally, so a repeated ID is still checked at every index it occupies.
func IsListUpdated(newApps, oldApps []Application) bool {
	if len(newApps) != len(oldApps) {
		return true
	}
	for i := range newApps {
		if !newApps[i].Equal(oldApps[i]) {
			return true
		}
	}
	return false
}

// IsHomeUpdated compares two home feeds section by section.
func IsHomeUpdated(newHome, oldHome []Home) bool {
	if len(newHome) != len(oldHome) {
		return true
	}
	for i := range newHome {
		if newHome[i].Title != oldHome[i].Title || newHome[i].Source != oldHome[i].Source {
			return true
		}
		if IsListUpdated(newHome[i].Apps, oldHome[i].Apps) {
			return true
		}
	}
	return false
}

// IsInstallStatusChanged re-queries the live installation status of every item.
// Items already at StatusInstallationIssue are not re-checked.
func IsInstallStatusChanged(current []Application, provider StatusProvider) bool {
	if provider == nil {
		return false
	}
	for _, app := range current {
		if app.IsPlaceholder || app.Status == StatusInstallationIssue {
			continue
		}
		if provider.Status(app.PackageName, app.VersionCode) != app.Status {
			return true
		}
	}
	return false
}
