// Package hclcell implements cell analysis and execution for cells written as
// flat HCL attribute lists:
//
//	total = price * quantity
//	label = format("%d items", quantity)
//
// Every attribute exports a binding. Any root variable an expression reads
// that is not an attribute of the same cell is consumed from another cell.
// The last attribute is the cell's displayed value. The attribute names
// "return" and "break" are reserved and mark a top-level escape.
package hclcell
