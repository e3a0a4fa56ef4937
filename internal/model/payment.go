package model

// PaymentWebhook is the JSON envelope the payment gateway posts to the
// webhook endpoint.  The outer code/desc pair describes the delivery itself;
// Data carries the transaction and Signature authenticates it.
type PaymentWebhook struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      PaymentData `json:"data"`
	Signature string      `json:"signature"`
}

// PaymentData is the signed portion of a gateway notification.  The
// signature covers exactly these fields, concatenated in sorted key order,
// so the struct must not gain fields that the gateway does not sign.
//
//  OrderCode           – gateway order identifier, fallback booking lookup key.
//  Amount              – notified amount in the smallest currency unit.
//  Description         – free text of the bank transfer; carries the BOOK token.
//  Reference           – gateway transaction reference.
//  TransactionDateTime – gateway-side timestamp of the transfer.
//  Code / Desc         – gateway result code and text; "00" means success.
type PaymentData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	Code                string `json:"code"`
	Desc                string `json:"desc"`
}

// GatewaySuccessCode is the canonical result code the gateway sends for a
// completed payment.  Anything else is logged and acknowledged untouched.
const GatewaySuccessCode = "00"
