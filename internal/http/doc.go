// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - POST /bookings: creates a single or recurring booking. Body: the
//     `bookingRequest` payload defined in booking_handler.go. Conflicting
//     requests answer 409 with the detected conflicts and up to three
//     alternative slots.
//   - GET /bookings?resource_id=&start=&end=: lists the stored bookings for a
//     resource overlapping the range.
//   - GET /bookings/{id}: fetches one booking.
//   - DELETE /bookings/{id}?mode=single|series|instance&instance_date=: cancels
//     a booking. `single` deletes one plain booking, `series` removes a
//     template with its materialized instances, `instance` records a cancelled
//     exception for one occurrence date.
//   - POST /bookings/{id}/exceptions, GET /bookings/{id}/exceptions: records
//     or lists per-occurrence overrides on a recurring template.
//   - DELETE /exceptions/{id}: removes one override.
//   - GET /resources, POST /resources, GET/PUT/DELETE /resources/{id}:
//     resource catalog endpoints exchanging the `resourceDTO` payload defined
//     in resource_handler.go. Deletion is a soft delete.
//   - GET /resources/{id}/availability?start=&end=&duration_minutes=: lists
//     free business-hour slots of the requested duration.
//   - GET /resources/{id}/utilization?start=&end=: reports booked versus
//     available business hours for the range.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
