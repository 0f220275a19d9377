// Package s3 archives rendered stack templates in S3-compatible object
// storage such as Hetzner Object Storage.
//
// Every template submitted to the orchestration backend is stored under
// stacks/<stack>/<revision>.json so a later run can inspect what was
// submitted. [Client] wraps the AWS SDK; [Archive] binds it to one bucket.
package s3
