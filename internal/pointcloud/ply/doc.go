// Package ply decodes PLY point-cloud files into flat lists of 3D points.
//
// Responsibilities: header scanning, vertex property layout, ASCII body
// parsing and fixed-width binary body parsing in either byte order.
// Key types: Point3, PointSet, Header, Format.
//
// Dependency rule: ply is a leaf of the point-cloud pipeline and must not
// import pairing, scene or upload.
//
// Only the x, y and z values of the vertex element are retained. Faces,
// colours and normals are read past (binary) or ignored (ASCII).
package ply
