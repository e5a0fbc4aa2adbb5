// Package checkpoint persists model snapshots to a blob store and resumes
// training from the newest complete one.
//
// Each snapshot lives under a "{epoch}_{iteration}/" prefix and consists
// of a binary records blob plus a JSON completion marker. The marker is
// written last; a snapshot without it is invisible to resume, so a crash
// mid-write can never surface a torn checkpoint.
package checkpoint
