package models

import "net/url"

// FloorImageSources lists the floor map image candidates in load order: the
// same-origin path derived from the floor id, then the server's absolute URL.
func FloorImageSources(f Floor) []string {
	if f.ID == "" {
		return nil
	}
	out := []string{"/api/floors/" + url.PathEscape(f.ID) + "/image"}
	if f.MapImage != nil && f.MapImage.RemoteURL != "" {
		out = append(out, f.MapImage.RemoteURL)
	}
	return out
}

// RecordImageSources lists a record's detection image candidates the same way.
func RecordImageSources(r Record) []string {
	if r.ID == "" {
		return nil
	}
	out := []string{"/api/records/" + url.PathEscape(r.ID) + "/image"}
	if r.CloudURL != "" {
		out = append(out, r.CloudURL)
	}
	return out
}
