// Package domain models seismic events published by the GeoNet quake feed.
//
// # Data Source
//
// Events come from the GeoNet GeoJSON endpoint, by default
// https://api.geonet.org.nz/quake?MMI=1. Each feature carries
// properties.{publicID,time,magnitude,depth,locality} and a point geometry
// whose coordinates are ordered [lon, lat] (GeoJSON convention).
//
// # Identity
//
// publicID is assigned by GeoNet and is stable across revisions. GeoNet
// revises magnitude, depth and locality as analysts review an event, so
// stores upsert by ID with last-write-wins semantics.
//
// # Time
//
// All timestamps are UTC. Feed timestamps with an offset are converted;
// timestamps without a zone are read as UTC, which is what GeoNet publishes.
//
// # Classification
//
// Magnitude classes follow the public Richter effect table:
//
//	≤2.5        minor          usually not felt
//	2.5 – 5.4   minimal risk   often felt, minor damage
//	>5.4        alert          damage to structures likely
//
// Depth bands drive dashboard marker colour:
//
//	≤20 km shallow | ≤40 km intermediate | ≤70 km deep | >70 km very deep
package domain
