// Package notify delivers terminal job outcomes to the frontend.
//
// Two sinks exist: "webhook" posts JSON payloads to the frontend's webhook
// endpoints, and "store" treats the database write as delivery and only logs
// the outcome. Delivery failures are logged with the full payload so an
// operator can replay them; they never change a job's status.
package notify
