// Package archiver implements the box archival pipeline: writer resolution,
// pagination planning, bounded listing harvest, serialized per-article
// rendering and the driver that sequences them.
package archiver
