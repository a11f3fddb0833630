// Package kafka is the queue transport for transcription jobs, built on
// segmentio/kafka-go.
//
// Jobs arrive as JSON on the job topic; each outcome is published to the
// result topic keyed by job id. Dispatch policy (retries, dead letters,
// scaling) stays with whoever owns the topics.
//
//   - Component: consumer/producer lifecycle for the component registry
//   - kafka/consumer: consume loop and the job handler
//   - kafka/producer: result writer with bounded retries
//
// Configuration:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "whisperjob"
//	  job_topic: "transcription.jobs"
//	  result_topic: "transcription.results"
package kafka
