// Package notebookdir maps a directory of files onto a notebook. Every
// "*.hcl" file is a code cell and every "*.md" file a prose cell; the path
// relative to the directory, without extension, is the cell id, and lexical
// path order is cell order.
package notebookdir
