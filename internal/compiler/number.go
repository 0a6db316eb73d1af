package compiler

import (
	"fmt"

	"github.com/roach88/manifold/internal/syntax"
)

// DefaultFloor is the lowest field number assigned when no floor is
// configured.
const DefaultFloor = 1

// numberFields allocates field numbers for one type in two passes:
// explicit claims are collected first, then unnumbered fields take the
// lowest unused number at or above the floor in declaration order. An
// explicit number never gets reused even when its claim appears later
// in the declaration. Every conflict is reported, not just the first.
func numberFields(typeName string, fields []*syntax.Field, floor int, errs *errorList) []int {
	nums := make([]int, len(fields))
	explicit := map[int]string{}

	for i, f := range fields {
		if !f.HasNum {
			continue
		}
		nums[i] = f.Num
		if f.Num < floor {
			errs.add(newNumberConflict(
				fmt.Sprintf("field %s.%s: number %d is below the floor %d", typeName, f.Name, f.Num, floor), f.Pos))
			continue
		}
		if prev, taken := explicit[f.Num]; taken {
			errs.add(newNumberConflict(
				fmt.Sprintf("field %s.%s: number %d already used by %s", typeName, f.Name, f.Num, prev), f.Pos))
			continue
		}
		explicit[f.Num] = f.Name
	}

	next := floor
	for i, f := range fields {
		if f.HasNum {
			continue
		}
		for _, taken := explicit[next]; taken; _, taken = explicit[next] {
			next++
		}
		nums[i] = next
		next++
	}
	return nums
}

// numberEnumValues resolves enum value numbers: explicit values are
// collected first with duplicates rejected, then unnumbered values
// continue from the highest number seen so far in declaration order,
// starting at 1. Zero stays free for the generated proto UNSPECIFIED
// value unless a declared value claims it explicitly.
func numberEnumValues(enumName string, values []*syntax.EnumValue, errs *errorList) []int {
	nums := make([]int, len(values))
	explicit := map[int]string{}

	for i, v := range values {
		if !v.HasNum {
			continue
		}
		nums[i] = v.Num
		if v.Num < 0 {
			errs.add(newNumberConflict(
				fmt.Sprintf("enum value %s.%s: number %d is negative", enumName, v.Name, v.Num), v.Pos))
			continue
		}
		if prev, taken := explicit[v.Num]; taken {
			errs.add(newNumberConflict(
				fmt.Sprintf("enum value %s.%s: number %d already used by %s", enumName, v.Name, v.Num, prev), v.Pos))
			continue
		}
		explicit[v.Num] = v.Name
	}

	high := 0
	for i, v := range values {
		if v.HasNum {
			if v.Num > high {
				high = v.Num
			}
			continue
		}
		n := high + 1
		for _, taken := explicit[n]; taken; _, taken = explicit[n] {
			n++
		}
		nums[i] = n
		high = n
	}
	return nums
}
