// Package api exposes the job pipeline over HTTP. POST /runsync accepts a
// job, runs it to completion and answers with its envelope.
package api
