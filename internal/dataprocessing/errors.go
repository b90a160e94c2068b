package dataprocessing

import "github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"

// ErrInvalidParameter is returned, wrapped with detail, when a caller passes
// a value outside an operation's contract.
var ErrInvalidParameter = domain.ErrInvalidParameter
