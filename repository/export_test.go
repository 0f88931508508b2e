package repository

var RunStoreContract = runStoreContract
