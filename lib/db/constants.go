package db

const RecordDoesNotExistError = "record not found"
const ChangeSetDoesNotExistError = "change set not found"
const VersionAlreadyExistsError = "change set version already exists"
