// Package domain models crowdsourced marine hazard reports.
//
// # Reports
//
// A report is a sighting of a hazard to small-craft navigation, filed from a
// vessel or shore station with device GPS coordinates, an optional free-text
// note, and an optional photo. Connectivity on the water is intermittent, so
// a report accepted by the relay is not necessarily delivered yet: it is
// spooled locally with status "pending_upload" and synced to the hosted
// backend when the uplink returns.
//
// # Hazard Types
//
// Reports carry one of six types:
//
//	debris       floating or semi-submerged objects (containers, timber, nets)
//	pollution    fuel or oil sheen, chemical discharge, sewage
//	obstruction  fixed dangers (shoals, unlit structures, dragging moorings)
//	wildlife     animal activity requiring avoidance (whale pods, seal haul-outs)
//	weather      localized conditions not in the forecast (squalls, fog banks)
//	other        anything the reporter cannot classify
//
// Types are matched case-insensitively and stored lowercase.
//
// # Severity
//
// Severity is an integer scale from 1 to 5 chosen by the reporter:
//
//	1 minor        noteworthy, no course change needed
//	2 moderate     worth steering around
//	3 significant  hazardous to small craft
//	4 severe       hazardous to most vessels
//	5 extreme      immediate danger to life or vessel
//
// [SeverityLabel] maps the integer to its display label.
//
// # Status Lifecycle
//
// Locally a record only ever holds "pending_upload"; records are written once
// at acceptance and removed after the hosted backend confirms the insert.
// Rows on the hosted backend start as "pending" and move through "verified",
// "resolved", or "dismissed" as moderators triage them.
//
// # Photo Objects
//
// Photos upload to the hosted object store under the key
//
//	{owner}_{timestamp}.{ext}
//
// where owner is the relay's reporter identity, timestamp is the report's
// queue time in Unix milliseconds, and ext is the photo's file extension.
// See [PhotoObjectKey].
//
// # Geocoding
//
// Place names shown next to a report come from reverse geocoding and are
// display-only enrichment: they are never written to the spool or the hosted
// backend, and a geocoding failure never blocks a report. See
// [AnnotateReport].
package domain
