// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

// Map applies fn to every part's local value independently and
// returns the distributed results. It is the only primitive that
// touches local values and it performs no communication: fn may read
// and mutate only the value passed to it, and must be deterministic
// given identical inputs.
func Map[A, B any](fn func(A) B, d Data[A]) Data[B] {
	switch d := d.(type) {
	case *seqData[A]:
		vals := make([]B, len(d.vals))
		for i, v := range d.vals {
			vals[i] = fn(v)
		}
		return &seqData[B]{b: d.b, vals: vals}
	case *procData[A]:
		return &procData[B]{c: d.c, val: fn(d.val)}
	}
	badData("partio.Map", d)
	return nil
}

// Map2 is Map over two aligned distributed containers. The inputs
// must share a backend and part count.
func Map2[A, B, C any](fn func(A, B) C, da Data[A], db Data[B]) Data[C] {
	checkSame("partio.Map2", da, db)
	switch da := da.(type) {
	case *seqData[A]:
		sb := db.(*seqData[B])
		vals := make([]C, len(da.vals))
		for i, v := range da.vals {
			vals[i] = fn(v, sb.vals[i])
		}
		return &seqData[C]{b: da.b, vals: vals}
	case *procData[A]:
		return &procData[C]{c: da.c, val: fn(da.val, db.(*procData[B]).val)}
	}
	badData("partio.Map2", da)
	return nil
}

// Map3 is Map over three aligned distributed containers.
func Map3[A, B, C, D any](fn func(A, B, C) D, da Data[A], db Data[B], dc Data[C]) Data[D] {
	checkSame("partio.Map3", da, db, dc)
	switch da := da.(type) {
	case *seqData[A]:
		sb, sc := db.(*seqData[B]), dc.(*seqData[C])
		vals := make([]D, len(da.vals))
		for i, v := range da.vals {
			vals[i] = fn(v, sb.vals[i], sc.vals[i])
		}
		return &seqData[D]{b: da.b, vals: vals}
	case *procData[A]:
		return &procData[D]{c: da.c, val: fn(da.val, db.(*procData[B]).val, dc.(*procData[C]).val)}
	}
	badData("partio.Map3", da)
	return nil
}

// MapParts is Map with the part's 1-based id supplied alongside its
// value.
func MapParts[A, B any](fn func(part int, v A) B, d Data[A]) Data[B] {
	switch d := d.(type) {
	case *seqData[A]:
		vals := make([]B, len(d.vals))
		for i, v := range d.vals {
			vals[i] = fn(i+1, v)
		}
		return &seqData[B]{b: d.b, vals: vals}
	case *procData[A]:
		return &procData[B]{c: d.c, val: fn(d.c.part(), d.val)}
	}
	badData("partio.MapParts", d)
	return nil
}

// mapParts2 is MapParts over two aligned distributed containers.
func mapParts2[A, B, C any](fn func(part int, a A, b B) C, da Data[A], db Data[B]) Data[C] {
	checkSame("partio.mapParts2", da, db)
	switch da := da.(type) {
	case *seqData[A]:
		sb := db.(*seqData[B])
		vals := make([]C, len(da.vals))
		for i, v := range da.vals {
			vals[i] = fn(i+1, v, sb.vals[i])
		}
		return &seqData[C]{b: da.b, vals: vals}
	case *procData[A]:
		return &procData[C]{c: da.c, val: fn(da.c.part(), da.val, db.(*procData[B]).val)}
	}
	badData("partio.mapParts2", da)
	return nil
}

// Each applies fn to every part's local value for its side effects on
// that value alone.
func Each[A any](fn func(A), d Data[A]) {
	Map(func(v A) struct{} { fn(v); return struct{}{} }, d)
}
