// Package template defines the template rendering seam used by the views.
package template
