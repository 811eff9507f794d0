// Package sanitizer provides input normalization for guest and
// accommodation data before validation and storage.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings rather than errors.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Emails: Trim and lowercase
//   - City codes: Uppercase three-letter codes - "krk" becomes "KRK"
package sanitizer
