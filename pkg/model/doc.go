// Package model defines the sign-up sheet content types: sheets own tasks,
// tasks own sign-ups. The types are plain structs so storage, rendering and
// the JSON API can share them; helpers here cover the date math (expiry,
// date ranges) and spot counting that every surface needs.
package model
