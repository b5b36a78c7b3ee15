//go:build noaccel

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package platform

// AcceleratorCompiled reports whether accelerator support was included in the build.
// This build used the tag `noaccel`.
const AcceleratorCompiled = false
