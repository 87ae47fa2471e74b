// Package logging centralizes slog construction and the structured field
// vocabulary shared by every clipmark component. All loops attach a
// "component" attribute; warnings carry event_type and error_hint so the
// log stream stays greppable.
package logging
