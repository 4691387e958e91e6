// Package settings exposes the application options as typed accessors. Option
// names keep their historical dls_sus_/fdsus_ prefixes so existing data and
// the site health report stay readable.
package settings
