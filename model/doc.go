// Package model defines the core value types shared across skipgrid:
// embedding records, training pairs and scheduler step keys.
//
// These types are deliberately dependency-free. They cross every package
// boundary in the module (pair generation, dataset partitioning, local
// optimization, checkpointing), so they carry no behavior beyond cloning
// and key formatting.
package model
