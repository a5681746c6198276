// Package tags extracts cross-system identifiers from Timewarrior tags.
//
// An identifier tag has the form "<class>:<integer>", for example
// "kimai_project:3". Which class names mean project, activity or record id
// is configuration; see Classifier.
package tags
