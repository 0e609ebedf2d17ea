package grpc

import "github.com/dmitrijs2005/abroadportal/internal/server/guard"

// MethodPolicy is the capability table checked before every call. A zero
// Rule only requires an authenticated user.
var MethodPolicy = guard.Policy{
	"Ping":              {Public: true},
	"ExchangeLoginLink": {Public: true},

	"GetProgress":          {},
	"Advance":              {},
	"SelectProgram":        {MinStep: 2},
	"ConfirmInvitation":    {MinStep: 6},
	"SetVisaTrackingCode":  {MinStep: 7},
	"RequestUploadURL":     {},
	"UploadDocument":       {},
	"DeleteDocument":       {},
	"ListDocuments":        {},
	"SubmitForReview":      {},
	"GetReviewStatus":      {},
	"GetDocumentLink":      {},
	"ListNotifications":    {},
	"MarkNotificationRead": {},

	"RegisterStudent":             {Admin: true},
	"GetStudent":                  {Admin: true},
	"SetDocumentStatus":           {Admin: true},
	"SetStep":                     {Admin: true},
	"ApproveStep":                 {Admin: true},
	"RejectStep":                  {Admin: true},
	"UploadCountersignedContract": {Admin: true},
	"UploadInvitationLetter":      {Admin: true},
	"UploadFlightTicket":          {Admin: true},
	"GetAuditLog":                 {Admin: true},
}
