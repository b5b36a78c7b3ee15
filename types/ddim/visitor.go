// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ddim

import "github.com/pkg/errors"

// Visitor has one method per supported rank. DDim.Apply calls the one matching the
// concrete value it holds.
type Visitor interface {
	VisitDim1(d Dim1) error
	VisitDim2(d Dim2) error
	VisitDim3(d Dim3) error
	VisitDim4(d Dim4) error
	VisitDim5(d Dim5) error
	VisitDim6(d Dim6) error
	VisitDim7(d Dim7) error
	VisitDim8(d Dim8) error
	VisitDim9(d Dim9) error
}

// Apply calls the visitor method for the rank held by d, and returns its result.
//
// An invalid (zero) DDim returns an error and the visitor is not called.
func (d DDim) Apply(v Visitor) error {
	switch fixed := d.fixed.(type) {
	case Dim1:
		return v.VisitDim1(fixed)
	case Dim2:
		return v.VisitDim2(fixed)
	case Dim3:
		return v.VisitDim3(fixed)
	case Dim4:
		return v.VisitDim4(fixed)
	case Dim5:
		return v.VisitDim5(fixed)
	case Dim6:
		return v.VisitDim6(fixed)
	case Dim7:
		return v.VisitDim7(fixed)
	case Dim8:
		return v.VisitDim8(fixed)
	case Dim9:
		return v.VisitDim9(fixed)
	case nil:
		return errors.New("ddim: cannot apply visitor to an invalid DDim")
	}
	return errors.Errorf("ddim: unsupported rank %d in %s", d.fixed.Rank(), d)
}
