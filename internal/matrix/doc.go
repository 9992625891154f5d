// Package matrix decodes thermal captures into 2-D grids of float32 and
// reduces them to min/max/mean summaries.
//
// Captures use the NumPy array container: a bare .npy file, or an .npz zip
// archive whose first .npy member is the frame. Grids are always stored and
// flattened in row-major order; Fortran-ordered payloads are transposed on
// decode.
//
// A capture holds exactly one frame. The frame count is read from the leading
// axis of a 3-D shape, so (1, rows, cols) is accepted and anything with more
// frames is rejected with ErrMultiFrame.
package matrix
